package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/habitloop/checkin-api/middleware"
	"github.com/habitloop/checkin-api/models"
	"github.com/habitloop/checkin-api/utils"
)

// NotificationController serves the in-app notification inbox.
type NotificationController struct {
	db *gorm.DB
}

// NewNotificationController creates a NotificationController.
func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{db: db}
}

// List returns the caller's notifications newest first; unread_only=true
// filters to unread ones.
func (n *NotificationController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := n.db.Where("user_id = ?", middleware.CurrentUserID(ctx))
	if ctx.Query("unread_only") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Model(&models.Notification{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to count notifications")
		return
	}

	var items []models.Notification
	if err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50081, "failed to list notifications")
		return
	}

	utils.Success(ctx, gin.H{
		"items": items,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// UnreadCount returns the number of unread notifications.
func (n *NotificationController) UnreadCount(ctx *gin.Context) {
	var count int64
	if err := n.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", middleware.CurrentUserID(ctx), false).
		Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50082, "failed to count unread")
		return
	}
	utils.Success(ctx, gin.H{"count": count})
}

// MarkRead marks one notification as read. Only the owner may do so.
func (n *NotificationController) MarkRead(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40080, "invalid notification id")
		return
	}

	var notif models.Notification
	if err := n.db.First(&notif, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40480, "notification not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50083, "failed to load notification")
		return
	}
	if notif.UserID != middleware.CurrentUserID(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40380, "not your notification")
		return
	}

	if err := n.db.Model(&notif).Update("is_read", true).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50084, "failed to mark read")
		return
	}
	utils.Success(ctx, gin.H{"message": "marked read"})
}

// ReadAll marks all of the caller's notifications as read.
func (n *NotificationController) ReadAll(ctx *gin.Context) {
	if err := n.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", middleware.CurrentUserID(ctx), false).
		Update("is_read", true).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50085, "failed to mark all read")
		return
	}
	utils.Success(ctx, gin.H{"message": "all read"})
}

// Clear deletes all of the caller's notifications.
func (n *NotificationController) Clear(ctx *gin.Context) {
	if err := n.db.Where("user_id = ?", middleware.CurrentUserID(ctx)).
		Delete(&models.Notification{}).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50086, "failed to clear notifications")
		return
	}
	utils.Success(ctx, gin.H{"message": "cleared"})
}
