package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"gorm.io/gorm"

	"github.com/habitloop/checkin-api/config"
	"github.com/habitloop/checkin-api/middleware"
	"github.com/habitloop/checkin-api/models"
	"github.com/habitloop/checkin-api/services/wechat"
	"github.com/habitloop/checkin-api/utils"
)

const tokenLifetime = 72 * time.Hour

// UserController handles login, registration and profile endpoints across
// the supported identity providers (wechat mini program, local accounts,
// GitHub OAuth for the web client).
type UserController struct {
	db     *gorm.DB
	wechat *wechat.Client
}

// NewUserController creates a UserController.
func NewUserController(db *gorm.DB, wc *wechat.Client) *UserController {
	return &UserController{db: db, wechat: wc}
}

// WechatLogin exchanges a mini program js_code for a session and issues a JWT.
// First login creates the user row keyed by (provider, openid).
func (u *UserController) WechatLogin(ctx *gin.Context) {
	var req struct {
		Code     string `json:"code" binding:"required"`
		Nickname string `json:"nickname"`
		Avatar   string `json:"avatar"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	openid, err := u.wechat.ExchangeCode(ctx.Request.Context(), req.Code)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "wechat code exchange failed")
		return
	}

	user, err := u.findOrCreateUser("wechat", openid, func(user *models.User) {
		user.Nickname = fallback(strings.TrimSpace(req.Nickname), "微信用户")
		user.Avatar = strings.TrimSpace(req.Avatar)
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to persist user")
		return
	}

	// refresh profile fields the client sent along
	updates := map[string]interface{}{}
	if v := strings.TrimSpace(req.Nickname); v != "" && v != user.Nickname {
		updates["nickname"] = v
	}
	if v := strings.TrimSpace(req.Avatar); v != "" && v != user.Avatar {
		updates["avatar"] = v
	}
	if len(updates) > 0 {
		_ = u.db.Model(user).Updates(updates).Error
	}

	token, err := utils.GenerateToken(user.ID, "wechat", tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{"token": token, "user": userResponse(*user)})
}

// Register creates a local account with a bcrypt password hash.
func (u *UserController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,min=3,max=64"`
		Password string `json:"password" binding:"required,min=6,max=64"`
		Nickname string `json:"nickname"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)

	var existing models.User
	if err := u.db.Where("provider = ? AND username = ?", "local", req.Username).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{
		Provider:     "local",
		ProviderID:   req.Username,
		Username:     req.Username,
		PasswordHash: hash,
		Nickname:     fallback(strings.TrimSpace(req.Nickname), req.Username),
	}
	if err := u.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	token, err := utils.GenerateToken(user.ID, "local", tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{"token": token, "user": userResponse(user)})
}

// Login verifies local account credentials and issues a JWT.
func (u *UserController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	var user models.User
	if err := u.db.Where("provider = ? AND username = ?", "local", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, "local", tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{"token": token, "user": userResponse(user)})
}

// Logout invalidates the token by blacklisting it until expiration.
func (u *UserController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}

	ttl := tokenLifetime
	if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}

	utils.BlacklistToken(token, ttl)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// OAuthRedirect generates the GitHub authorization URL for the web client.
func (u *UserController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := githubOAuthConfig()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveOAuthState(state)

	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code for a GitHub identity and issues a JWT.
func (u *UserController) OAuthCallback(ctx *gin.Context) {
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeOAuthState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := githubOAuthConfig()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	token, err := cfg.Exchange(context.Background(), code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	ghUser, err := fetchGitHubUser(token)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, err.Error())
		return
	}

	user, err := u.findOrCreateUser("github", ghUser.ID, func(user *models.User) {
		user.Username = ghUser.Login
		user.Nickname = fallback(ghUser.Name, ghUser.Login)
		user.Avatar = ghUser.AvatarURL
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to persist user")
		return
	}

	jwtToken, err := utils.GenerateToken(user.ID, "github", tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{"token": jwtToken, "user": userResponse(*user)})
}

// Me returns the current authenticated user's information.
func (u *UserController) Me(ctx *gin.Context) {
	var user models.User
	if err := u.db.First(&user, middleware.CurrentUserID(ctx)).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	utils.Success(ctx, userResponse(user))
}

// UpdateProfile allows the authenticated user to update basic profile fields.
// Only nickname, avatar and signature are writable; points and identity
// fields are never accepted from the client.
func (u *UserController) UpdateProfile(ctx *gin.Context) {
	var req struct {
		Nickname  *string `json:"nickname"`
		Avatar    *string `json:"avatar"`
		Signature *string `json:"signature"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	var user models.User
	if err := u.db.First(&user, middleware.CurrentUserID(ctx)).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	if req.Nickname != nil {
		if v := strings.TrimSpace(*req.Nickname); v != "" {
			user.Nickname = utils.SanitizePlain(v)
		}
	}
	if req.Avatar != nil {
		user.Avatar = strings.TrimSpace(*req.Avatar)
	}
	if req.Signature != nil {
		sig := utils.SanitizePlain(strings.TrimSpace(*req.Signature))
		if rs := []rune(sig); len(rs) > 255 {
			sig = string(rs[:255])
		}
		user.Signature = sig
	}

	if err := u.db.Save(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to update profile")
		return
	}
	utils.CacheDelete(fmt.Sprintf("cache:user:%d", user.ID))

	utils.Success(ctx, userResponse(user))
}

func (u *UserController) findOrCreateUser(provider, subject string, init func(*models.User)) (*models.User, error) {
	var user models.User
	err := u.db.Where("provider = ? AND provider_id = ?", provider, subject).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{Provider: provider, ProviderID: subject}
	init(&user)
	if err := u.db.Create(&user).Error; err != nil {
		// lost a race with a concurrent first login
		if ferr := u.db.Where("provider = ? AND provider_id = ?", provider, subject).First(&user).Error; ferr == nil {
			return &user, nil
		}
		return nil, err
	}
	return &user, nil
}

func githubOAuthConfig() (*oauth2.Config, error) {
	cfg := config.Get()
	if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
		return nil, fmt.Errorf("github oauth not configured")
	}
	return &oauth2.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/github/callback", cfg.OAuthRedirectBase),
		Scopes:       []string{"read:user"},
		Endpoint:     github.Endpoint,
	}, nil
}

type githubUser struct {
	ID        string
	Login     string
	Name      string
	AvatarURL string
}

func fetchGitHubUser(token *oauth2.Token) (*githubUser, error) {
	req, _ := http.NewRequest("GET", "https://api.github.com/user", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token.AccessToken))
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user info request failed: %s", resp.Status)
	}

	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return &githubUser{
		ID:        fmt.Sprintf("%d", payload.ID),
		Login:     payload.Login,
		Name:      payload.Name,
		AvatarURL: payload.AvatarURL,
	}, nil
}

func fallback(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"provider":   user.Provider,
		"username":   user.Username,
		"nickname":   user.Nickname,
		"avatar":     user.Avatar,
		"signature":  user.Signature,
		"points":     user.Points,
		"created_at": user.CreatedAt,
	}
}
