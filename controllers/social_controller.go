package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/habitloop/checkin-api/middleware"
	"github.com/habitloop/checkin-api/models"
	"github.com/habitloop/checkin-api/utils"
)

const leaderboardCacheKey = "cache:leaderboard:points"

// SocialController handles teams, the check-in circle feed and the points
// leaderboard.
type SocialController struct {
	db *gorm.DB
}

// NewSocialController creates a SocialController.
func NewSocialController(db *gorm.DB) *SocialController {
	return &SocialController{db: db}
}

// CreateTeam creates a team with the caller as captain.
func (s *SocialController) CreateTeam(ctx *gin.Context) {
	var req struct {
		Name       string `json:"name" binding:"required,max=64"`
		Intro      string `json:"intro"`
		MaxMembers int    `json:"max_members"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid request payload")
		return
	}

	userID := middleware.CurrentUserID(ctx)
	maxMembers := req.MaxMembers
	if maxMembers <= 0 || maxMembers > 100 {
		maxMembers = 10
	}

	team := models.Team{
		UserID:     userID,
		Name:       utils.SanitizePlain(strings.TrimSpace(req.Name)),
		Intro:      utils.SanitizePlain(strings.TrimSpace(req.Intro)),
		MaxMembers: maxMembers,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return err
		}
		member := models.TeamMember{TeamID: team.ID, UserID: userID, Role: "captain"}
		return tx.Create(&member).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to create team")
		return
	}
	utils.Success(ctx, team)
}

// ListTeams returns active teams with member counts.
func (s *SocialController) ListTeams(ctx *gin.Context) {
	var teams []models.Team
	if err := s.db.Where("status = ?", "active").Order("created_at DESC").Find(&teams).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to list teams")
		return
	}

	out := make([]gin.H, 0, len(teams))
	for _, t := range teams {
		var members int64
		s.db.Model(&models.TeamMember{}).Where("team_id = ?", t.ID).Count(&members)
		out = append(out, gin.H{
			"id":           t.ID,
			"name":         t.Name,
			"intro":        t.Intro,
			"max_members":  t.MaxMembers,
			"member_count": members,
			"created_at":   t.CreatedAt,
		})
	}
	utils.Success(ctx, out)
}

// GetTeam returns a team and its member list.
func (s *SocialController) GetTeam(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40061, "invalid team id")
		return
	}

	var team models.Team
	if err := s.db.Preload("Members.User").Preload("Captain").First(&team, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40460, "team not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to load team")
		return
	}
	utils.Success(ctx, team)
}

// JoinTeam adds the caller to a team. Joining twice or joining a full team
// fails.
func (s *SocialController) JoinTeam(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40061, "invalid team id")
		return
	}
	userID := middleware.CurrentUserID(ctx)

	var team models.Team
	if err := s.db.First(&team, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40460, "team not found")
		return
	}

	var existing int64
	s.db.Model(&models.TeamMember{}).Where("team_id = ? AND user_id = ?", team.ID, userID).Count(&existing)
	if existing > 0 {
		utils.Error(ctx, http.StatusConflict, 40960, "already a member")
		return
	}

	var members int64
	s.db.Model(&models.TeamMember{}).Where("team_id = ?", team.ID).Count(&members)
	if members >= int64(team.MaxMembers) {
		utils.Error(ctx, http.StatusBadRequest, 40062, "team is full")
		return
	}

	member := models.TeamMember{TeamID: team.ID, UserID: userID, Role: "member"}
	if err := s.db.Create(&member).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to join team")
		return
	}

	s.notify(team.UserID, "team", "新成员加入", "有新成员加入了你的小组", team.ID)
	utils.Success(ctx, gin.H{"message": "joined"})
}

// LeaveTeam removes the caller from a team. The captain cannot leave.
func (s *SocialController) LeaveTeam(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40061, "invalid team id")
		return
	}
	userID := middleware.CurrentUserID(ctx)

	var team models.Team
	if err := s.db.First(&team, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40460, "team not found")
		return
	}
	if team.UserID == userID {
		utils.Error(ctx, http.StatusBadRequest, 40063, "captain cannot leave the team")
		return
	}

	res := s.db.Where("team_id = ? AND user_id = ?", team.ID, userID).Delete(&models.TeamMember{})
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to leave team")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40064, "not a member")
		return
	}
	utils.Success(ctx, gin.H{"message": "left"})
}

// CreatePost publishes a check-in circle update. Content keeps a safe HTML
// subset; everything else is stripped.
func (s *SocialController) CreatePost(ctx *gin.Context) {
	var req struct {
		Content string   `json:"content" binding:"required"`
		Images  []string `json:"images"`
		Tags    []string `json:"tags"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40065, "invalid request payload")
		return
	}

	content := utils.Sanitize(strings.TrimSpace(req.Content))
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40066, "content is empty")
		return
	}
	if len(req.Images) > 9 {
		req.Images = req.Images[:9]
	}
	imagesJSON, _ := json.Marshal(req.Images)

	post := models.Post{
		UserID:  middleware.CurrentUserID(ctx),
		Content: content,
		Images:  string(imagesJSON),
		Tags:    utils.SanitizePlain(strings.Join(req.Tags, ",")),
	}
	if err := s.db.Create(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50065, "failed to create post")
		return
	}
	utils.Success(ctx, post)
}

// ListPosts returns the feed newest first with pagination, marking posts the
// caller has liked.
func (s *SocialController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	userID := middleware.CurrentUserID(ctx)

	var total int64
	if err := s.db.Model(&models.Post{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50066, "failed to count posts")
		return
	}

	var posts []models.Post
	if err := s.db.Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50067, "failed to list posts")
		return
	}

	likedSet := map[uint]bool{}
	if len(posts) > 0 {
		ids := make([]uint, 0, len(posts))
		for _, p := range posts {
			ids = append(ids, p.ID)
		}
		var likes []models.Like
		s.db.Where("user_id = ? AND post_id IN ?", userID, ids).Find(&likes)
		for _, l := range likes {
			likedSet[l.PostID] = true
		}
	}

	items := make([]gin.H, 0, len(posts))
	for _, p := range posts {
		var commentCount int64
		s.db.Model(&models.Comment{}).Where("post_id = ?", p.ID).Count(&commentCount)
		items = append(items, gin.H{
			"id":            p.ID,
			"content":       p.Content,
			"images":        p.Images,
			"tags":          p.Tags,
			"like_count":    p.LikeCount,
			"comment_count": commentCount,
			"is_liked":      likedSet[p.ID],
			"author":        p.User,
			"created_at":    p.CreatedAt,
		})
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

// ToggleLike likes a post, or removes the like when it already exists.
func (s *SocialController) ToggleLike(ctx *gin.Context) {
	postID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || postID <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40067, "invalid post id")
		return
	}
	userID := middleware.CurrentUserID(ctx)

	var post models.Post
	if err := s.db.First(&post, postID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40461, "post not found")
		return
	}

	liked := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", post.ID, userID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return tx.Model(&post).UpdateColumn("like_count", gorm.Expr("GREATEST(like_count - 1, 0)")).Error
		}
		if err := tx.Create(&models.Like{PostID: post.ID, UserID: userID}).Error; err != nil {
			return err
		}
		liked = true
		return tx.Model(&post).UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50068, "failed to toggle like")
		return
	}

	if liked && post.UserID != userID {
		s.notify(post.UserID, "like", "收到点赞", "有人赞了你的动态", post.ID)
	}
	utils.Success(ctx, gin.H{"liked": liked})
}

// CreateComment adds a comment to a post.
func (s *SocialController) CreateComment(ctx *gin.Context) {
	postID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || postID <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40067, "invalid post id")
		return
	}

	var req struct {
		Content string `json:"content" binding:"required,max=500"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40068, "invalid request payload")
		return
	}

	var post models.Post
	if err := s.db.First(&post, postID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40461, "post not found")
		return
	}

	userID := middleware.CurrentUserID(ctx)
	comment := models.Comment{
		PostID:  post.ID,
		UserID:  userID,
		Content: utils.SanitizePlain(strings.TrimSpace(req.Content)),
	}
	if comment.Content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40066, "content is empty")
		return
	}
	if err := s.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50069, "failed to create comment")
		return
	}

	if post.UserID != userID {
		s.notify(post.UserID, "comment", "收到评论", "有人评论了你的动态", post.ID)
	}
	utils.Success(ctx, comment)
}

// ListComments returns a post's comments oldest first.
func (s *SocialController) ListComments(ctx *gin.Context) {
	postID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || postID <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40067, "invalid post id")
		return
	}

	var comments []models.Comment
	if err := s.db.Preload("User").Where("post_id = ?", postID).Order("created_at ASC").Find(&comments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to list comments")
		return
	}
	utils.Success(ctx, comments)
}

// Leaderboard returns the top users by points, cached briefly.
func (s *SocialController) Leaderboard(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(leaderboardCacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var users []models.User
	if err := s.db.Order("points DESC, id ASC").Limit(10).Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to load leaderboard")
		return
	}

	entries := make([]gin.H, 0, len(users))
	for i, u := range users {
		var checkins int64
		s.db.Model(&models.CheckInRecord{}).Where("user_id = ?", u.ID).Count(&checkins)
		entries = append(entries, gin.H{
			"rank":     i + 1,
			"user_id":  u.ID,
			"nickname": u.Nickname,
			"avatar":   u.Avatar,
			"points":   u.Points,
			"checkins": checkins,
		})
	}

	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: entries}
	utils.CacheSetJSON(leaderboardCacheKey, wrapper, 5*time.Minute)
	utils.Success(ctx, entries)
}

func (s *SocialController) notify(userID uint, typ, title, content string, relatedID uint) {
	n := models.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Content:   content,
		RelatedID: relatedID,
	}
	if err := s.db.Create(&n).Error; err != nil {
		utils.Sugar.Warnf("failed to create notification for user %d: %v", userID, err)
	}
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page, pageSize := 1, 10
	if v := strings.TrimSpace(pageStr); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := strings.TrimSpace(sizeStr); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 50 {
			pageSize = n
		}
	}
	return page, pageSize
}
