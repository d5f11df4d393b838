package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/habitloop/checkin-api/config"
	"github.com/habitloop/checkin-api/controllers"
	"github.com/habitloop/checkin-api/middleware"
	"github.com/habitloop/checkin-api/services/checkin"
	"github.com/habitloop/checkin-api/services/incentive"
	"github.com/habitloop/checkin-api/services/wechat"
	"github.com/habitloop/checkin-api/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, checkinSvc *checkin.Service, incentiveSvc *incentive.Service, wechatClient *wechat.Client) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinLogPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static("/static", "./static")

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	userController := controllers.NewUserController(db, wechatClient)
	checkinController := controllers.NewCheckinController(db, checkinSvc)
	incentiveController := controllers.NewIncentiveController(incentiveSvc)
	analyticsController := controllers.NewAnalyticsController(db, checkinSvc, incentiveSvc)
	socialController := controllers.NewSocialController(db)
	notificationController := controllers.NewNotificationController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/wechat-login", userController.WechatLogin)
	authGroup.POST("/register", userController.Register)
	authGroup.POST("/login", userController.Login)
	authGroup.GET("/oauth/github/login", userController.OAuthRedirect)
	authGroup.GET("/oauth/github/callback", userController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), userController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), userController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), userController.UpdateProfile)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.POST("/items", checkinController.CreateItem)
	protected.GET("/items", checkinController.ListItems)
	protected.GET("/items/:id", checkinController.GetItem)
	protected.PUT("/items/:id", checkinController.UpdateItem)
	protected.DELETE("/items/:id", checkinController.DeleteItem)
	protected.POST("/checkins", checkinController.Submit)
	protected.POST("/checkins/makeup", checkinController.Makeup)
	protected.GET("/checkins", checkinController.ListRecords)
	protected.POST("/upload", checkinController.UploadProof)

	protected.GET("/points/records", incentiveController.PointsRecords)
	protected.GET("/medals", incentiveController.Medals)
	protected.GET("/challenges", incentiveController.Challenges)
	protected.POST("/challenges/:id/join", incentiveController.JoinChallenge)

	protected.GET("/stats", analyticsController.UserStats)
	protected.GET("/stats/trend", analyticsController.Trend)
	protected.GET("/stats/report", analyticsController.MonthlyReport)

	protected.POST("/teams", socialController.CreateTeam)
	protected.GET("/teams", socialController.ListTeams)
	protected.GET("/teams/:id", socialController.GetTeam)
	protected.POST("/teams/:id/join", socialController.JoinTeam)
	protected.POST("/teams/:id/leave", socialController.LeaveTeam)
	protected.POST("/posts", socialController.CreatePost)
	protected.GET("/posts", socialController.ListPosts)
	protected.POST("/posts/:id/like", socialController.ToggleLike)
	protected.POST("/posts/:id/comments", socialController.CreateComment)
	protected.GET("/posts/:id/comments", socialController.ListComments)
	protected.GET("/leaderboard", socialController.Leaderboard)

	protected.GET("/notifications", notificationController.List)
	protected.GET("/notifications/unread-count", notificationController.UnreadCount)
	protected.PATCH("/notifications/:id/read", notificationController.MarkRead)
	protected.PATCH("/notifications/read-all", notificationController.ReadAll)
	protected.DELETE("/notifications", notificationController.Clear)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
