package store

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/habitloop/checkin-api/models"
)

const mysqlDupEntry = 1062

// GormStore implements Store on a *gorm.DB (MySQL).
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore wraps a gorm connection in a Store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Transaction runs fn against a Store bound to a single database
// transaction. Nested calls reuse gorm's savepoint handling.
func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) GetUserForUpdate(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) AddUserPoints(ctx context.Context, id uint, delta int) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("points", gorm.Expr("points + ?", delta))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreatePointsRecord(ctx context.Context, rec *models.PointsRecord) error {
	return translate(s.db.WithContext(ctx).Create(rec).Error)
}

func (s *GormStore) ListPointsRecords(ctx context.Context, userID uint) ([]models.PointsRecord, error) {
	var records []models.PointsRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	return records, translate(err)
}

func (s *GormStore) GetItem(ctx context.Context, id uint) (*models.CheckInItem, error) {
	var item models.CheckInItem
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (s *GormStore) RecordExists(ctx context.Context, userID, itemID uint, date time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CheckInRecord{}).
		Where("user_id = ? AND item_id = ? AND record_date = ?", userID, itemID, date).
		Count(&count).Error
	if err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

func (s *GormStore) CreateCheckInRecord(ctx context.Context, rec *models.CheckInRecord) error {
	return translate(s.db.WithContext(ctx).Create(rec).Error)
}

func (s *GormStore) ListRecordDates(ctx context.Context, userID uint) ([]time.Time, error) {
	var records []models.CheckInRecord
	err := s.db.WithContext(ctx).Model(&models.CheckInRecord{}).
		Select("record_date").
		Where("user_id = ?", userID).
		Order("record_date DESC").
		Find(&records).Error
	if err != nil {
		return nil, translate(err)
	}
	dates := make([]time.Time, 0, len(records))
	for _, r := range records {
		dates = append(dates, r.RecordDate)
	}
	return dates, nil
}

func (s *GormStore) CountItems(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CheckInItem{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, translate(err)
}

func (s *GormStore) CountRecords(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CheckInRecord{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, translate(err)
}

func (s *GormStore) CountRecordsOn(ctx context.Context, userID uint, date time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CheckInRecord{}).
		Where("user_id = ? AND record_date = ?", userID, date).
		Count(&count).Error
	return count, translate(err)
}

func (s *GormStore) FindMedalByCondition(ctx context.Context, condition string) (*models.Medal, error) {
	var medal models.Medal
	err := s.db.WithContext(ctx).
		Where("`condition` = ?", condition).
		First(&medal).Error
	if err != nil {
		return nil, translate(err)
	}
	return &medal, nil
}

func (s *GormStore) HasUserMedal(ctx context.Context, userID, medalID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.UserMedal{}).
		Where("user_id = ? AND medal_id = ?", userID, medalID).
		Count(&count).Error
	if err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

func (s *GormStore) CreateUserMedal(ctx context.Context, um *models.UserMedal) error {
	return translate(s.db.WithContext(ctx).Create(um).Error)
}

func (s *GormStore) ListUserMedals(ctx context.Context, userID uint) ([]models.UserMedal, error) {
	var medals []models.UserMedal
	err := s.db.WithContext(ctx).
		Preload("Medal").
		Where("user_id = ?", userID).
		Order("earned_at DESC").
		Find(&medals).Error
	return medals, translate(err)
}

func (s *GormStore) GetChallengeForUpdate(ctx context.Context, id uint) (*models.Challenge, error) {
	var challenge models.Challenge
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&challenge, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &challenge, nil
}

func (s *GormStore) AddChallengeParticipants(ctx context.Context, id uint, delta int) error {
	res := s.db.WithContext(ctx).Model(&models.Challenge{}).
		Where("id = ?", id).
		UpdateColumn("participants", gorm.Expr("participants + ?", delta))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListChallenges(ctx context.Context, statuses []string) ([]models.Challenge, error) {
	var challenges []models.Challenge
	q := s.db.WithContext(ctx)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	err := q.Order("start_date ASC").Find(&challenges).Error
	return challenges, translate(err)
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var my *mysql.MySQLError
	if errors.As(err, &my) && my.Number == mysqlDupEntry {
		return ErrDuplicate
	}
	return err
}
