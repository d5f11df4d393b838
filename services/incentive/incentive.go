// Package incentive owns point balance mutation, medal awarding and
// challenge participation. Every balance change is paired with exactly one
// ledger row inside a single store transaction, so a user's points always
// equal the signed sum of their PointsRecords.
package incentive

import (
	"context"
	"errors"
	"time"

	"github.com/habitloop/checkin-api/models"
	"github.com/habitloop/checkin-api/store"
)

var (
	ErrNotFound            = errors.New("incentive: not found")
	ErrInvalidAmount       = errors.New("incentive: amount must be positive")
	ErrInsufficientBalance = errors.New("incentive: insufficient balance")
)

// Service is the points ledger plus medal and challenge operations.
type Service struct {
	store store.Store
}

// NewService creates an incentive service over the given store.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// With returns a copy of the service bound to st. Callers that already hold
// a transactional store use this to make a ledger call commit or roll back
// together with their own writes.
func (s *Service) With(st store.Store) *Service {
	return &Service{store: st}
}

// AddPoints appends a +amount ledger row and increments the user's balance.
// Fails with ErrNotFound if the user does not exist; amount must be > 0.
func (s *Service) AddPoints(ctx context.Context, userID uint, amount int, typ, reason string, relatedID uint) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.AddUserPoints(ctx, userID, amount); err != nil {
			return err
		}
		return tx.CreatePointsRecord(ctx, &models.PointsRecord{
			UserID:    userID,
			Amount:    amount,
			Type:      typ,
			Reason:    reason,
			RelatedID: relatedID,
			CreatedAt: time.Now(),
		})
	})
	return mapStoreErr(err)
}

// DeductPoints appends a -amount ledger row and decrements the balance. The
// user row is locked for the whole check-then-decrement so concurrent
// deductions cannot jointly drive the balance negative. No mutation happens
// on ErrInsufficientBalance.
func (s *Service) DeductPoints(ctx context.Context, userID uint, amount int, typ, reason string, relatedID uint) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		user, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user.Points < amount {
			return ErrInsufficientBalance
		}
		if err := tx.AddUserPoints(ctx, userID, -amount); err != nil {
			return err
		}
		return tx.CreatePointsRecord(ctx, &models.PointsRecord{
			UserID:    userID,
			Amount:    -amount,
			Type:      typ,
			Reason:    reason,
			RelatedID: relatedID,
			CreatedAt: time.Now(),
		})
	})
	return mapStoreErr(err)
}

// GetBalance returns the user's current point balance.
func (s *Service) GetBalance(ctx context.Context, userID uint) (int, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return 0, mapStoreErr(err)
	}
	return user.Points, nil
}

// PointsRecords returns the user's ledger entries, newest first.
func (s *Service) PointsRecords(ctx context.Context, userID uint) ([]models.PointsRecord, error) {
	records, err := s.store.ListPointsRecords(ctx, userID)
	return records, mapStoreErr(err)
}

// CheckAndAwardMedal grants the medal registered under condition to the user
// if it exists and was not granted before. An unknown condition or an
// already-earned medal is a normal false return, not an error. The unique
// (user, medal) index is the arbiter under concurrent invocation: a
// duplicate-key insert also reports false.
func (s *Service) CheckAndAwardMedal(ctx context.Context, userID uint, condition string) (bool, error) {
	medal, err := s.store.FindMedalByCondition(ctx, condition)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	earned, err := s.store.HasUserMedal(ctx, userID, medal.ID)
	if err != nil {
		return false, err
	}
	if earned {
		return false, nil
	}

	err = s.store.CreateUserMedal(ctx, &models.UserMedal{
		UserID:   userID,
		MedalID:  medal.ID,
		EarnedAt: time.Now(),
	})
	if errors.Is(err, store.ErrDuplicate) {
		// lost the race, the medal exists now
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Medals returns the user's earned medals, newest first.
func (s *Service) Medals(ctx context.Context, userID uint) ([]models.UserMedal, error) {
	medals, err := s.store.ListUserMedals(ctx, userID)
	return medals, mapStoreErr(err)
}

// Challenges returns upcoming and ongoing challenges.
func (s *Service) Challenges(ctx context.Context) ([]models.Challenge, error) {
	challenges, err := s.store.ListChallenges(ctx, []string{models.ChallengeUpcoming, models.ChallengeOngoing})
	return challenges, mapStoreErr(err)
}

// JoinChallenge increments the challenge participant counter and returns the
// new count. Joins are counted, not deduplicated: joining twice increments
// twice. Fails with ErrNotFound if the challenge does not exist.
func (s *Service) JoinChallenge(ctx context.Context, userID, challengeID uint) (int, error) {
	var participants int
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		challenge, err := tx.GetChallengeForUpdate(ctx, challengeID)
		if err != nil {
			return err
		}
		if err := tx.AddChallengeParticipants(ctx, challengeID, 1); err != nil {
			return err
		}
		participants = challenge.Participants + 1
		return nil
	})
	if err != nil {
		return 0, mapStoreErr(err)
	}
	return participants, nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
