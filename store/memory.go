package store

import (
	"context"
	"time"

	"github.com/habitloop/checkin-api/models"
)

// MemoryStore is an in-memory Store used by service tests. Transaction takes
// a snapshot and restores it when fn fails, mirroring the rollback behavior
// of the MySQL implementation. It is not safe for concurrent use.
type MemoryStore struct {
	users      map[uint]*models.User
	items      map[uint]*models.CheckInItem
	medals     map[uint]*models.Medal
	challenges map[uint]*models.Challenge
	points     []models.PointsRecord
	records    []models.CheckInRecord
	userMedals []models.UserMedal
	nextID     uint
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      map[uint]*models.User{},
		items:      map[uint]*models.CheckInItem{},
		medals:     map[uint]*models.Medal{},
		challenges: map[uint]*models.Challenge{},
		nextID:     1,
	}
}

func (s *MemoryStore) id() uint {
	id := s.nextID
	s.nextID++
	return id
}

// SeedUser inserts a user and returns its id.
func (s *MemoryStore) SeedUser(u models.User) uint {
	if u.ID == 0 {
		u.ID = s.id()
	}
	s.users[u.ID] = &u
	return u.ID
}

// SeedItem inserts a check-in item and returns its id.
func (s *MemoryStore) SeedItem(it models.CheckInItem) uint {
	if it.ID == 0 {
		it.ID = s.id()
	}
	s.items[it.ID] = &it
	return it.ID
}

// SeedMedal inserts a medal and returns its id.
func (s *MemoryStore) SeedMedal(m models.Medal) uint {
	if m.ID == 0 {
		m.ID = s.id()
	}
	s.medals[m.ID] = &m
	return m.ID
}

// SeedChallenge inserts a challenge and returns its id.
func (s *MemoryStore) SeedChallenge(c models.Challenge) uint {
	if c.ID == 0 {
		c.ID = s.id()
	}
	s.challenges[c.ID] = &c
	return c.ID
}

type memSnapshot struct {
	users      map[uint]*models.User
	items      map[uint]*models.CheckInItem
	medals     map[uint]*models.Medal
	challenges map[uint]*models.Challenge
	points     []models.PointsRecord
	records    []models.CheckInRecord
	userMedals []models.UserMedal
	nextID     uint
}

func copyMap[V any](in map[uint]*V) map[uint]*V {
	out := make(map[uint]*V, len(in))
	for k, v := range in {
		c := *v
		out[k] = &c
	}
	return out
}

func (s *MemoryStore) snapshot() memSnapshot {
	return memSnapshot{
		users:      copyMap(s.users),
		items:      copyMap(s.items),
		medals:     copyMap(s.medals),
		challenges: copyMap(s.challenges),
		points:     append([]models.PointsRecord(nil), s.points...),
		records:    append([]models.CheckInRecord(nil), s.records...),
		userMedals: append([]models.UserMedal(nil), s.userMedals...),
		nextID:     s.nextID,
	}
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.users = snap.users
	s.items = snap.items
	s.medals = snap.medals
	s.challenges = snap.challenges
	s.points = snap.points
	s.records = snap.records
	s.userMedals = snap.userMedals
	s.nextID = snap.nextID
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(Store) error) error {
	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

func (s *MemoryStore) GetUserForUpdate(ctx context.Context, id uint) (*models.User, error) {
	return s.GetUser(ctx, id)
}

func (s *MemoryStore) AddUserPoints(ctx context.Context, id uint, delta int) error {
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Points += delta
	return nil
}

func (s *MemoryStore) CreatePointsRecord(ctx context.Context, rec *models.PointsRecord) error {
	rec.ID = s.id()
	s.points = append(s.points, *rec)
	return nil
}

func (s *MemoryStore) ListPointsRecords(ctx context.Context, userID uint) ([]models.PointsRecord, error) {
	var out []models.PointsRecord
	for _, r := range s.points {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetItem(ctx context.Context, id uint) (*models.CheckInItem, error) {
	it, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *it
	return &c, nil
}

func (s *MemoryStore) RecordExists(ctx context.Context, userID, itemID uint, date time.Time) (bool, error) {
	for _, r := range s.records {
		if r.UserID == userID && r.ItemID == itemID && r.RecordDate.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CreateCheckInRecord(ctx context.Context, rec *models.CheckInRecord) error {
	for _, r := range s.records {
		if r.UserID == rec.UserID && r.ItemID == rec.ItemID && r.RecordDate.Equal(rec.RecordDate) {
			return ErrDuplicate
		}
	}
	rec.ID = s.id()
	s.records = append(s.records, *rec)
	return nil
}

func (s *MemoryStore) ListRecordDates(ctx context.Context, userID uint) ([]time.Time, error) {
	var out []time.Time
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, r.RecordDate)
		}
	}
	return out, nil
}

func (s *MemoryStore) CountItems(ctx context.Context, userID uint) (int64, error) {
	var n int64
	for _, it := range s.items {
		if it.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountRecords(ctx context.Context, userID uint) (int64, error) {
	var n int64
	for _, r := range s.records {
		if r.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountRecordsOn(ctx context.Context, userID uint, date time.Time) (int64, error) {
	var n int64
	for _, r := range s.records {
		if r.UserID == userID && r.RecordDate.Equal(date) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) FindMedalByCondition(ctx context.Context, condition string) (*models.Medal, error) {
	for _, m := range s.medals {
		if m.Condition == condition {
			c := *m
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) HasUserMedal(ctx context.Context, userID, medalID uint) (bool, error) {
	for _, um := range s.userMedals {
		if um.UserID == userID && um.MedalID == medalID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CreateUserMedal(ctx context.Context, um *models.UserMedal) error {
	for _, existing := range s.userMedals {
		if existing.UserID == um.UserID && existing.MedalID == um.MedalID {
			return ErrDuplicate
		}
	}
	um.ID = s.id()
	s.userMedals = append(s.userMedals, *um)
	return nil
}

func (s *MemoryStore) ListUserMedals(ctx context.Context, userID uint) ([]models.UserMedal, error) {
	var out []models.UserMedal
	for _, um := range s.userMedals {
		if um.UserID == userID {
			out = append(out, um)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetChallengeForUpdate(ctx context.Context, id uint) (*models.Challenge, error) {
	c, ok := s.challenges[id]
	if !ok {
		return nil, ErrNotFound
	}
	cc := *c
	return &cc, nil
}

func (s *MemoryStore) AddChallengeParticipants(ctx context.Context, id uint, delta int) error {
	c, ok := s.challenges[id]
	if !ok {
		return ErrNotFound
	}
	c.Participants += delta
	return nil
}

func (s *MemoryStore) ListChallenges(ctx context.Context, statuses []string) ([]models.Challenge, error) {
	var out []models.Challenge
	for _, c := range s.challenges {
		if len(statuses) == 0 {
			out = append(out, *c)
			continue
		}
		for _, st := range statuses {
			if c.Status == st {
				out = append(out, *c)
				break
			}
		}
	}
	return out, nil
}
