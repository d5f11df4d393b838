// Package store is the persistence boundary for the reward core. Services
// depend on the Store interface; the GORM/MySQL implementation lives in
// gorm.go. Check-then-act sequences (balance deduction, per-day uniqueness,
// medal awarding) run inside Transaction with the relevant unique index or
// row lock as the final arbiter.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/habitloop/checkin-api/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("store: duplicate key")
)

// Store is the durable storage surface consumed by the incentive and
// check-in services. Implementations must make Transaction atomic: every
// call on the Store passed to fn commits or rolls back as one unit.
type Store interface {
	Transaction(ctx context.Context, fn func(Store) error) error

	// users
	GetUser(ctx context.Context, id uint) (*models.User, error)
	// GetUserForUpdate locks the user row for the rest of the enclosing
	// transaction so a balance check and the following mutation observe a
	// consistent snapshot.
	GetUserForUpdate(ctx context.Context, id uint) (*models.User, error)
	AddUserPoints(ctx context.Context, id uint, delta int) error

	// points ledger
	CreatePointsRecord(ctx context.Context, rec *models.PointsRecord) error
	ListPointsRecords(ctx context.Context, userID uint) ([]models.PointsRecord, error)

	// check-in items and records
	GetItem(ctx context.Context, id uint) (*models.CheckInItem, error)
	RecordExists(ctx context.Context, userID, itemID uint, date time.Time) (bool, error)
	CreateCheckInRecord(ctx context.Context, rec *models.CheckInRecord) error
	ListRecordDates(ctx context.Context, userID uint) ([]time.Time, error)
	CountItems(ctx context.Context, userID uint) (int64, error)
	CountRecords(ctx context.Context, userID uint) (int64, error)
	CountRecordsOn(ctx context.Context, userID uint, date time.Time) (int64, error)

	// medals
	FindMedalByCondition(ctx context.Context, condition string) (*models.Medal, error)
	HasUserMedal(ctx context.Context, userID, medalID uint) (bool, error)
	CreateUserMedal(ctx context.Context, um *models.UserMedal) error
	ListUserMedals(ctx context.Context, userID uint) ([]models.UserMedal, error)

	// challenges
	GetChallengeForUpdate(ctx context.Context, id uint) (*models.Challenge, error)
	AddChallengeParticipants(ctx context.Context, id uint, delta int) error
	ListChallenges(ctx context.Context, statuses []string) ([]models.Challenge, error)
}
