package checkin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitloop/checkin-api/models"
	"github.com/habitloop/checkin-api/services/incentive"
	"github.com/habitloop/checkin-api/store"
)

var testNow = time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	ledger *incentive.Service
	st     *store.MemoryStore
	userID uint
	itemID uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	userID := st.SeedUser(models.User{Nickname: "tester"})
	itemID := st.SeedItem(models.CheckInItem{UserID: userID, Name: "morning run", Type: models.ItemTypeCount})
	ledger := incentive.NewService(st)
	svc := NewService(st, ledger, 5, 10)
	svc.now = func() time.Time { return testNow }
	return &fixture{svc: svc, ledger: ledger, st: st, userID: userID, itemID: itemID}
}

func (f *fixture) balance(t *testing.T) int {
	t.Helper()
	balance, err := f.ledger.GetBalance(context.Background(), f.userID)
	require.NoError(t, err)
	return balance
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, err := f.svc.Submit(ctx, f.userID, f.itemID, "done", "")
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusNormal, record.Status)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), record.RecordDate)
	assert.Equal(t, 5, f.balance(t))
}

func TestSubmitTwiceSameDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.userID, f.itemID, "", "")
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.userID, f.itemID, "", "")
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

	// exactly one record, one reward
	count, err := f.st.CountRecords(ctx, f.userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, 5, f.balance(t))
}

func TestSubmitUnknownItem(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), f.userID, 999, "", "")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestSubmitForeignItem(t *testing.T) {
	f := newFixture(t)
	otherID := f.st.SeedUser(models.User{Nickname: "other"})
	otherItem := f.st.SeedItem(models.CheckInItem{UserID: otherID, Name: "their habit"})

	_, err := f.svc.Submit(context.Background(), f.userID, otherItem, "", "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSubmitAwardsFirstCheckinMedal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.st.SeedMedal(models.Medal{Name: "First Step", Condition: "first_checkin"})

	_, err := f.svc.Submit(ctx, f.userID, f.itemID, "", "")
	require.NoError(t, err)

	medals, err := f.ledger.Medals(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, medals, 1)

	// a second item's check-in does not award it again
	item2 := f.st.SeedItem(models.CheckInItem{UserID: f.userID, Name: "reading"})
	_, err = f.svc.Submit(ctx, f.userID, item2, "", "")
	require.NoError(t, err)
	medals, err = f.ledger.Medals(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, medals, 1)
}

func TestMakeup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ledger.AddPoints(ctx, f.userID, 15, models.PointsTypeSystem, "seed", 0))

	record, err := f.svc.Makeup(ctx, f.userID, f.itemID, testNow.AddDate(0, 0, -2))
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusMakeup, record.Status)
	assert.Equal(t, 10, record.MakeupCost)
	assert.Equal(t, 5, f.balance(t))
}

func TestMakeupInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ledger.AddPoints(ctx, f.userID, 5, models.PointsTypeSystem, "seed", 0))

	_, err := f.svc.Makeup(ctx, f.userID, f.itemID, testNow.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, incentive.ErrInsufficientBalance)

	// balance untouched, no record written
	assert.Equal(t, 5, f.balance(t))
	count, err := f.st.CountRecords(ctx, f.userID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	// top up, retry succeeds
	require.NoError(t, f.ledger.AddPoints(ctx, f.userID, 10, models.PointsTypeSystem, "top up", 0))
	assert.Equal(t, 15, f.balance(t))

	record, err := f.svc.Makeup(ctx, f.userID, f.itemID, testNow.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusMakeup, record.Status)
	assert.Equal(t, 5, f.balance(t))
	count, err = f.st.CountRecords(ctx, f.userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestMakeupExistingDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ledger.AddPoints(ctx, f.userID, 30, models.PointsTypeSystem, "seed", 0))

	_, err := f.svc.Makeup(ctx, f.userID, f.itemID, testNow.AddDate(0, 0, -1))
	require.NoError(t, err)

	_, err = f.svc.Makeup(ctx, f.userID, f.itemID, testNow.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
	assert.Equal(t, 20, f.balance(t))
}

func TestMakeupRejectsTodayAndFuture(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ledger.AddPoints(ctx, f.userID, 30, models.PointsTypeSystem, "seed", 0))

	_, err := f.svc.Makeup(ctx, f.userID, f.itemID, testNow)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = f.svc.Makeup(ctx, f.userID, f.itemID, testNow.AddDate(0, 0, 3))
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestUserStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ledger.AddPoints(ctx, f.userID, 20, models.PointsTypeSystem, "seed", 0))

	// yesterday via makeup, today via submit: a 2-day streak
	_, err := f.svc.Makeup(ctx, f.userID, f.itemID, testNow.AddDate(0, 0, -1))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.userID, f.itemID, "", "")
	require.NoError(t, err)

	stats, err := f.svc.UserStats(ctx, f.userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalItems)
	assert.EqualValues(t, 2, stats.TotalRecords)
	assert.EqualValues(t, 1, stats.TodayRecords)
	assert.Equal(t, 2, stats.ConsecutiveDays)
	assert.Equal(t, 15, stats.Points) // 20 - 10 makeup + 5 reward
}

func TestStreakWithoutTodayIsZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ledger.AddPoints(ctx, f.userID, 30, models.PointsTypeSystem, "seed", 0))

	for offset := -3; offset <= -1; offset++ {
		_, err := f.svc.Makeup(ctx, f.userID, f.itemID, testNow.AddDate(0, 0, offset))
		require.NoError(t, err)
	}

	days, err := f.svc.ConsecutiveDays(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 0, days)
}

// staleReadStore simulates the window where a concurrent writer committed a
// record after our existence pre-check: the pre-check sees nothing and the
// unique index inside the transaction has to decide.
type staleReadStore struct {
	*store.MemoryStore
}

func (s *staleReadStore) RecordExists(ctx context.Context, userID, itemID uint, date time.Time) (bool, error) {
	return false, nil
}

func TestSubmitLosesInsertRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.userID, f.itemID, "", "")
	require.NoError(t, err)

	racing := NewService(&staleReadStore{f.st}, f.ledger, 5, 10)
	racing.now = func() time.Time { return testNow }

	_, err = racing.Submit(ctx, f.userID, f.itemID, "", "")
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

	// the losing transaction left no record and no second reward
	count, err := f.st.CountRecords(ctx, f.userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, 5, f.balance(t))
	records, err := f.ledger.PointsRecords(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMakeupLosesInsertRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ledger.AddPoints(ctx, f.userID, 20, models.PointsTypeSystem, "seed", 0))

	day := testNow.AddDate(0, 0, -1)
	_, err := f.svc.Makeup(ctx, f.userID, f.itemID, day)
	require.NoError(t, err)
	require.Equal(t, 10, f.balance(t))

	racing := NewService(&staleReadStore{f.st}, f.ledger, 5, 10)
	racing.now = func() time.Time { return testNow }

	_, err = racing.Makeup(ctx, f.userID, f.itemID, day)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

	// no double deduction, no second record
	assert.Equal(t, 10, f.balance(t))
	records, err := f.ledger.PointsRecords(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, records, 2) // seed + first makeup
	count, err := f.st.CountRecords(ctx, f.userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
