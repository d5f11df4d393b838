package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/habitloop/checkin-api/middleware"
	"github.com/habitloop/checkin-api/services/incentive"
	"github.com/habitloop/checkin-api/utils"
)

// IncentiveController exposes the points ledger, medals and challenges.
type IncentiveController struct {
	svc *incentive.Service
}

// NewIncentiveController creates an IncentiveController.
func NewIncentiveController(svc *incentive.Service) *IncentiveController {
	return &IncentiveController{svc: svc}
}

// PointsRecords returns the caller's ledger entries, newest first, with the
// current balance.
func (i *IncentiveController) PointsRecords(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)

	records, err := i.svc.PointsRecords(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to list points records")
		return
	}
	balance, err := i.svc.GetBalance(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load balance")
		return
	}

	utils.Success(ctx, gin.H{"balance": balance, "records": records})
}

// Medals returns the caller's earned medals.
func (i *IncentiveController) Medals(ctx *gin.Context) {
	medals, err := i.svc.Medals(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to list medals")
		return
	}

	out := make([]gin.H, 0, len(medals))
	for _, um := range medals {
		entry := gin.H{"earned_at": um.EarnedAt, "medal_id": um.MedalID}
		if um.Medal != nil {
			entry["name"] = um.Medal.Name
			entry["description"] = um.Medal.Description
			entry["icon"] = um.Medal.Icon
			entry["rarity"] = um.Medal.Rarity
		}
		out = append(out, entry)
	}
	utils.Success(ctx, out)
}

// Challenges lists upcoming and ongoing challenges.
func (i *IncentiveController) Challenges(ctx *gin.Context) {
	challenges, err := i.svc.Challenges(ctx.Request.Context())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to list challenges")
		return
	}
	utils.Success(ctx, challenges)
}

// JoinChallenge registers the caller for a challenge and returns the new
// participant count.
func (i *IncentiveController) JoinChallenge(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid challenge id")
		return
	}

	participants, err := i.svc.JoinChallenge(ctx.Request.Context(), middleware.CurrentUserID(ctx), uint(id))
	if err != nil {
		if errors.Is(err, incentive.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "challenge not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to join challenge")
		return
	}
	utils.Success(ctx, gin.H{"participants": participants})
}
