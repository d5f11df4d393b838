// Package checkin orchestrates check-in submission and makeup. The record
// insert and the corresponding ledger mutation run in one store transaction:
// a check-in is never rewarded twice and never left without its points
// effect. The per-day unique index backs the already-checked-in rule; the
// pre-checks are a fast path only.
package checkin

import (
	"context"
	"errors"
	"time"

	"github.com/habitloop/checkin-api/models"
	"github.com/habitloop/checkin-api/services/incentive"
	"github.com/habitloop/checkin-api/services/streak"
	"github.com/habitloop/checkin-api/store"
)

var (
	ErrUserNotFound     = errors.New("checkin: user not found")
	ErrItemNotFound     = errors.New("checkin: item not found")
	ErrForbidden        = errors.New("checkin: item belongs to another user")
	ErrAlreadyCheckedIn = errors.New("checkin: already checked in for this day")
	ErrInvalidDate      = errors.New("checkin: makeup date must be before today")
)

// Medal condition keys evaluated after a successful check-in.
const (
	condFirstCheckin = "first_checkin"
	condStreak7      = "streak_7"
	condStreak30     = "streak_30"
)

// Stats summarizes a user's check-in activity.
type Stats struct {
	TotalItems      int64 `json:"total_items"`
	TotalRecords    int64 `json:"total_records"`
	TodayRecords    int64 `json:"today_records"`
	ConsecutiveDays int   `json:"consecutive_days"`
	Points          int   `json:"points"`
}

// Service is the check-in engine.
type Service struct {
	store  store.Store
	ledger *incentive.Service

	rewardPoints int
	makeupCost   int

	// now supplies the current time; tests override it to fix "today".
	now func() time.Time
}

// NewService creates a check-in engine. rewardPoints is awarded per normal
// check-in, makeupCost is deducted per makeup.
func NewService(st store.Store, ledger *incentive.Service, rewardPoints, makeupCost int) *Service {
	return &Service{
		store:        st,
		ledger:       ledger,
		rewardPoints: rewardPoints,
		makeupCost:   makeupCost,
		now:          time.Now,
	}
}

// MakeupCost returns the configured point cost of a makeup check-in.
func (s *Service) MakeupCost() int { return s.makeupCost }

// Submit records a check-in for today and awards the check-in reward. The
// item must exist and belong to the user; one record per (user, item, day).
func (s *Service) Submit(ctx context.Context, userID, itemID uint, note, proofURL string) (*models.CheckInRecord, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if item.UserID != userID {
		return nil, ErrForbidden
	}

	today := streak.DayOf(s.now())
	exists, err := s.store.RecordExists(ctx, userID, itemID, today)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyCheckedIn
	}

	record := &models.CheckInRecord{
		UserID:     userID,
		ItemID:     itemID,
		RecordDate: today,
		Status:     models.RecordStatusNormal,
		Note:       note,
		ProofURL:   proofURL,
		CreatedAt:  s.now(),
	}
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateCheckInRecord(ctx, record); err != nil {
			return err
		}
		return s.ledger.With(tx).AddPoints(ctx, userID, s.rewardPoints, models.PointsTypeNormal, "check-in reward", record.ID)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadyCheckedIn
		}
		return nil, err
	}

	// Medal evaluation is best-effort after the committed check-in; a miss
	// here never fails the submission.
	s.awardMedals(ctx, userID)

	return record, nil
}

// Makeup records a check-in for a past day and deducts the makeup cost. The
// balance check happens under the user row lock inside the same transaction
// as the record insert, so it still holds at commit time.
func (s *Service) Makeup(ctx context.Context, userID, itemID uint, date time.Time) (*models.CheckInRecord, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if item.UserID != userID {
		return nil, ErrForbidden
	}

	day := streak.DayOf(date)
	today := streak.DayOf(s.now())
	if !day.Before(today) {
		return nil, ErrInvalidDate
	}

	exists, err := s.store.RecordExists(ctx, userID, itemID, day)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyCheckedIn
	}

	record := &models.CheckInRecord{
		UserID:     userID,
		ItemID:     itemID,
		RecordDate: day,
		Status:     models.RecordStatusMakeup,
		MakeupCost: s.makeupCost,
		CreatedAt:  s.now(),
	}
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateCheckInRecord(ctx, record); err != nil {
			return err
		}
		return s.ledger.With(tx).DeductPoints(ctx, userID, s.makeupCost, models.PointsTypeMakeup, "makeup check-in", record.ID)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadyCheckedIn
		}
		return nil, err
	}
	return record, nil
}

// ConsecutiveDays returns the user's current streak as of today.
func (s *Service) ConsecutiveDays(ctx context.Context, userID uint) (int, error) {
	dates, err := s.store.ListRecordDates(ctx, userID)
	if err != nil {
		return 0, err
	}
	return streak.ConsecutiveDays(s.now(), dates), nil
}

// UserStats aggregates item/record counts, today's progress, the streak and
// the point balance.
func (s *Service) UserStats(ctx context.Context, userID uint) (*Stats, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	totalItems, err := s.store.CountItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	totalRecords, err := s.store.CountRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := streak.DayOf(s.now())
	todayRecords, err := s.store.CountRecordsOn(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	days, err := s.ConsecutiveDays(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalItems:      totalItems,
		TotalRecords:    totalRecords,
		TodayRecords:    todayRecords,
		ConsecutiveDays: days,
		Points:          user.Points,
	}, nil
}

func (s *Service) awardMedals(ctx context.Context, userID uint) {
	_, _ = s.ledger.CheckAndAwardMedal(ctx, userID, condFirstCheckin)

	days, err := s.ConsecutiveDays(ctx, userID)
	if err != nil {
		return
	}
	if days >= 7 {
		_, _ = s.ledger.CheckAndAwardMedal(ctx, userID, condStreak7)
	}
	if days >= 30 {
		_, _ = s.ledger.CheckAndAwardMedal(ctx, userID, condStreak30)
	}
}
