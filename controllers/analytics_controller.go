package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/habitloop/checkin-api/middleware"
	"github.com/habitloop/checkin-api/models"
	"github.com/habitloop/checkin-api/services/checkin"
	"github.com/habitloop/checkin-api/services/incentive"
	"github.com/habitloop/checkin-api/utils"
)

// AnalyticsController provides per-user statistics, trend charts and monthly
// reports.
type AnalyticsController struct {
	db        *gorm.DB
	checkin   *checkin.Service
	incentive *incentive.Service
}

// NewAnalyticsController creates an AnalyticsController.
func NewAnalyticsController(db *gorm.DB, cs *checkin.Service, is *incentive.Service) *AnalyticsController {
	return &AnalyticsController{db: db, checkin: cs, incentive: is}
}

// UserStats returns the caller's aggregate numbers: item/record totals,
// current streak, the monthly completion rate and recent ledger entries.
func (a *AnalyticsController) UserStats(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)

	stats, err := a.checkin.UserStats(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, checkin.ErrUserNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to load stats")
		return
	}

	completionRate := monthlyCompletionRate(stats.TotalRecords, stats.TotalItems)

	records, err := a.incentive.PointsRecords(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to load points records")
		return
	}
	if len(records) > 10 {
		records = records[:10]
	}

	medals, err := a.incentive.Medals(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to load medals")
		return
	}

	utils.Success(ctx, gin.H{
		"total_items":      stats.TotalItems,
		"total_records":    stats.TotalRecords,
		"today_records":    stats.TodayRecords,
		"consecutive_days": stats.ConsecutiveDays,
		"points":           stats.Points,
		"completion_rate":  completionRate,
		"medal_count":      len(medals),
		"recent_points":    records,
	})
}

// Trend returns per-day record counts for the last N days (default 7,
// capped at 90), zero-filled so every day appears even without records.
func (a *AnalyticsController) Trend(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)

	days := parseTrendDays(ctx.Query("days"))

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := today.AddDate(0, 0, -(days - 1))

	type row struct {
		Day   time.Time
		Count int64
	}
	var rows []row
	if err := a.db.Model(&models.CheckInRecord{}).
		Select("record_date AS day, COUNT(*) AS count").
		Where("user_id = ? AND record_date >= ?", userID, start).
		Group("record_date").
		Scan(&rows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to load trend")
		return
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Day.Format("2006-01-02")] += r.Count
	}

	points := make([]gin.H, 0, days)
	for d := 0; d < days; d++ {
		day := start.AddDate(0, 0, d).Format("2006-01-02")
		points = append(points, gin.H{"date": day, "count": counts[day]})
	}

	utils.Success(ctx, gin.H{"days": days, "points": points})
}

// MonthlyReport returns per-item record counts for a month (YYYY-MM,
// defaults to the current month).
func (a *AnalyticsController) MonthlyReport(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)

	month := ctx.Query("month")
	var start time.Time
	if month == "" {
		now := time.Now()
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	} else {
		var err error
		start, err = time.ParseInLocation("2006-01", month, time.Local)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40026, "month must be YYYY-MM")
			return
		}
	}
	end := start.AddDate(0, 1, 0)

	type itemRow struct {
		ItemID uint
		Name   string
		Count  int64
		Makeup int64
	}
	var rows []itemRow
	if err := a.db.Model(&models.CheckInRecord{}).
		Select("check_in_records.item_id AS item_id, check_in_items.name AS name, COUNT(*) AS count, SUM(CASE WHEN check_in_records.status = ? THEN 1 ELSE 0 END) AS makeup", models.RecordStatusMakeup).
		Joins("JOIN check_in_items ON check_in_items.id = check_in_records.item_id").
		Where("check_in_records.user_id = ? AND check_in_records.record_date >= ? AND check_in_records.record_date < ?", userID, start, end).
		Group("check_in_records.item_id, check_in_items.name").
		Scan(&rows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to build report")
		return
	}

	var total int64
	items := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		total += r.Count
		items = append(items, gin.H{
			"item_id": r.ItemID,
			"name":    r.Name,
			"count":   r.Count,
			"makeup":  r.Makeup,
		})
	}

	utils.Success(ctx, gin.H{
		"month":         start.Format("2006-01"),
		"total_records": total,
		"items":         items,
	})
}

// monthlyCompletionRate is records over items*30: the share of the last
// month's possible daily check-ins actually completed. More than 30 records
// per item caps at 1.
func monthlyCompletionRate(totalRecords, totalItems int64) float64 {
	if totalItems <= 0 {
		return 0
	}
	rate := float64(totalRecords) / float64(totalItems*30)
	if rate > 1 {
		return 1
	}
	return rate
}

func parseTrendDays(v string) int {
	days := 7
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
		days = n
	}
	if days > 90 {
		days = 90
	}
	return days
}
