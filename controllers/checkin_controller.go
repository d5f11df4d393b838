package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/habitloop/checkin-api/config"
	"github.com/habitloop/checkin-api/middleware"
	"github.com/habitloop/checkin-api/models"
	"github.com/habitloop/checkin-api/services/checkin"
	"github.com/habitloop/checkin-api/services/incentive"
	"github.com/habitloop/checkin-api/utils"
)

// CheckinController handles item CRUD, check-in submission/makeup, record
// listings and proof photo uploads. Item CRUD talks to the database
// directly; submissions go through the check-in engine.
type CheckinController struct {
	db  *gorm.DB
	svc *checkin.Service
}

// NewCheckinController creates a CheckinController.
func NewCheckinController(db *gorm.DB, svc *checkin.Service) *CheckinController {
	return &CheckinController{db: db, svc: svc}
}

var validItemTypes = map[string]bool{
	models.ItemTypeCount:  true,
	models.ItemTypeTiming: true,
	models.ItemTypeProof:  true,
}

var validCycles = map[string]bool{
	models.CycleDaily:  true,
	models.CycleWeekly: true,
	models.CycleCustom: true,
}

// CreateItem creates a check-in item owned by the caller.
func (c *CheckinController) CreateItem(ctx *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required,max=64"`
		Type      string `json:"type"`
		Cycle     string `json:"cycle"`
		Icon      string `json:"icon"`
		Color     string `json:"color"`
		SortOrder int    `json:"sort_order"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	if req.Type == "" {
		req.Type = models.ItemTypeCount
	}
	if req.Cycle == "" {
		req.Cycle = models.CycleDaily
	}
	if !validItemTypes[req.Type] {
		utils.Error(ctx, http.StatusBadRequest, 40021, "unknown item type")
		return
	}
	if !validCycles[req.Cycle] {
		utils.Error(ctx, http.StatusBadRequest, 40022, "unknown item cycle")
		return
	}

	item := models.CheckInItem{
		UserID:    middleware.CurrentUserID(ctx),
		Name:      utils.SanitizePlain(strings.TrimSpace(req.Name)),
		Type:      req.Type,
		Cycle:     req.Cycle,
		Icon:      req.Icon,
		Color:     req.Color,
		SortOrder: req.SortOrder,
	}
	if err := c.db.Create(&item).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create item")
		return
	}
	utils.Success(ctx, item)
}

// ListItems returns the caller's items, hidden ones excluded unless requested.
func (c *CheckinController) ListItems(ctx *gin.Context) {
	query := c.db.Where("user_id = ?", middleware.CurrentUserID(ctx))
	if ctx.Query("include_hidden") != "true" {
		query = query.Where("is_hidden = ?", false)
	}

	var items []models.CheckInItem
	if err := query.Order("sort_order ASC, id ASC").Find(&items).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to list items")
		return
	}
	utils.Success(ctx, items)
}

// GetItem returns one item the caller owns.
func (c *CheckinController) GetItem(ctx *gin.Context) {
	item, ok := c.loadOwnedItem(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, item)
}

// UpdateItem updates an item the caller owns.
func (c *CheckinController) UpdateItem(ctx *gin.Context) {
	item, ok := c.loadOwnedItem(ctx)
	if !ok {
		return
	}

	var req struct {
		Name      *string `json:"name"`
		Icon      *string `json:"icon"`
		Color     *string `json:"color"`
		Cycle     *string `json:"cycle"`
		IsHidden  *bool   `json:"is_hidden"`
		SortOrder *int    `json:"sort_order"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	if req.Name != nil {
		if v := utils.SanitizePlain(strings.TrimSpace(*req.Name)); v != "" {
			item.Name = v
		}
	}
	if req.Icon != nil {
		item.Icon = *req.Icon
	}
	if req.Color != nil {
		item.Color = *req.Color
	}
	if req.Cycle != nil {
		if !validCycles[*req.Cycle] {
			utils.Error(ctx, http.StatusBadRequest, 40022, "unknown item cycle")
			return
		}
		item.Cycle = *req.Cycle
	}
	if req.IsHidden != nil {
		item.IsHidden = *req.IsHidden
	}
	if req.SortOrder != nil {
		item.SortOrder = *req.SortOrder
	}

	if err := c.db.Save(item).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to update item")
		return
	}
	utils.Success(ctx, item)
}

// DeleteItem removes an item the caller owns. Past records stay for history.
func (c *CheckinController) DeleteItem(ctx *gin.Context) {
	item, ok := c.loadOwnedItem(ctx)
	if !ok {
		return
	}
	if err := c.db.Delete(item).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to delete item")
		return
	}
	utils.Success(ctx, gin.H{"message": "item deleted"})
}

// Submit records today's check-in for an item and awards points.
func (c *CheckinController) Submit(ctx *gin.Context) {
	var req struct {
		ItemID   uint   `json:"item_id" binding:"required"`
		Note     string `json:"note"`
		ProofURL string `json:"proof_url"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid request payload")
		return
	}

	record, err := c.svc.Submit(ctx.Request.Context(), middleware.CurrentUserID(ctx),
		req.ItemID, utils.SanitizePlain(req.Note), strings.TrimSpace(req.ProofURL))
	if err != nil {
		respondCheckinErr(ctx, err)
		return
	}
	utils.Success(ctx, record)
}

// Makeup records a check-in for a past day, paying the makeup cost.
func (c *CheckinController) Makeup(ctx *gin.Context) {
	var req struct {
		ItemID uint   `json:"item_id" binding:"required"`
		Date   string `json:"date" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid request payload")
		return
	}

	day, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "date must be YYYY-MM-DD")
		return
	}

	record, err := c.svc.Makeup(ctx.Request.Context(), middleware.CurrentUserID(ctx), req.ItemID, day)
	if err != nil {
		respondCheckinErr(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"record": record, "cost": c.svc.MakeupCost()})
}

// ListRecords returns the caller's records, optionally filtered by item and
// month (YYYY-MM).
func (c *CheckinController) ListRecords(ctx *gin.Context) {
	query := c.db.Where("user_id = ?", middleware.CurrentUserID(ctx))

	if v := ctx.Query("item_id"); v != "" {
		itemID, err := strconv.Atoi(v)
		if err != nil || itemID <= 0 {
			utils.Error(ctx, http.StatusBadRequest, 40025, "invalid item_id")
			return
		}
		query = query.Where("item_id = ?", itemID)
	}
	if v := ctx.Query("month"); v != "" {
		start, err := time.ParseInLocation("2006-01", v, time.Local)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40026, "month must be YYYY-MM")
			return
		}
		query = query.Where("record_date >= ? AND record_date < ?", start, start.AddDate(0, 1, 0))
	}

	var records []models.CheckInRecord
	if err := query.Preload("Item").Order("record_date DESC, id DESC").Find(&records).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to list records")
		return
	}
	utils.Success(ctx, records)
}

// UploadProof stores a proof photo and returns its public URL. Files expire
// and are swept by the background cleaner.
func (c *CheckinController) UploadProof(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no file uploaded")
		return
	}
	defer file.Close()

	cfg := config.Get()
	maxSize := int64(cfg.UploadMaxSizeMB) * 1024 * 1024
	if header.Size > 0 && header.Size > maxSize {
		utils.Error(ctx, http.StatusBadRequest, 40032, fmt.Sprintf("file size exceeds %dMB", cfg.UploadMaxSizeMB))
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		utils.Error(ctx, http.StatusBadRequest, 40033, "unsupported file type")
		return
	}

	now := time.Now()
	baseDir := filepath.Join(".", "static", "uploads", now.Format("2006"), now.Format("01"), now.Format("02"))
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to create upload directory")
		return
	}

	safeName := fmt.Sprintf("%d_%s%s", userID, uuid.NewString(), ext)
	dstPath := filepath.Join(baseDir, safeName)

	out, err := os.Create(dstPath)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to save file")
		return
	}
	defer out.Close()

	lr := &io.LimitedReader{R: file, N: maxSize + 1}
	written, err := io.Copy(out, lr)
	if err != nil {
		_ = os.Remove(dstPath)
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to write file")
		return
	}
	if written > maxSize {
		_ = os.Remove(dstPath)
		utils.Error(ctx, http.StatusBadRequest, 40032, fmt.Sprintf("file size exceeds %dMB", cfg.UploadMaxSizeMB))
		return
	}

	relURL := "/" + filepath.ToSlash(filepath.Join("static", "uploads", now.Format("2006"), now.Format("01"), now.Format("02"), safeName))
	absPath, _ := filepath.Abs(dstPath)
	expireAt := now.Add(time.Duration(cfg.UploadsSelfDestructHours) * time.Hour)

	if err := c.db.Create(&models.UploadedFile{
		UserID:   userID,
		FilePath: absPath,
		URL:      relURL,
		ExpireAt: expireAt,
	}).Error; err != nil {
		utils.Sugar.Warnf("failed to track uploaded file %s: %v", absPath, err)
	}

	utils.Success(ctx, gin.H{"url": relURL, "expire_at": expireAt})
}

func (c *CheckinController) loadOwnedItem(ctx *gin.Context) (*models.CheckInItem, bool) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40025, "invalid item id")
		return nil, false
	}

	var item models.CheckInItem
	if err := c.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "item not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to load item")
		return nil, false
	}
	if item.UserID != middleware.CurrentUserID(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40320, "item belongs to another user")
		return nil, false
	}
	return &item, true
}

func respondCheckinErr(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, checkin.ErrItemNotFound):
		utils.Error(ctx, http.StatusNotFound, 40420, "item not found")
	case errors.Is(err, checkin.ErrUserNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
	case errors.Is(err, checkin.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40320, "item belongs to another user")
	case errors.Is(err, checkin.ErrAlreadyCheckedIn):
		utils.Error(ctx, http.StatusConflict, 40930, "already checked in for this day")
	case errors.Is(err, checkin.ErrInvalidDate):
		utils.Error(ctx, http.StatusBadRequest, 40027, "makeup date must be before today")
	case errors.Is(err, incentive.ErrInsufficientBalance):
		utils.Error(ctx, http.StatusBadRequest, 40028, "not enough points")
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50026, "check-in failed")
	}
}
