package main

import (
	"time"

	"github.com/habitloop/checkin-api/config"
	"github.com/habitloop/checkin-api/models"
	"github.com/habitloop/checkin-api/routes"
	"github.com/habitloop/checkin-api/services/checkin"
	"github.com/habitloop/checkin-api/services/incentive"
	"github.com/habitloop/checkin-api/services/wechat"
	"github.com/habitloop/checkin-api/store"
	"github.com/habitloop/checkin-api/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.CheckInItem{},
		&models.CheckInRecord{},
		&models.PointsRecord{},
		&models.Medal{},
		&models.UserMedal{},
		&models.Challenge{},
		&models.Team{},
		&models.TeamMember{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Notification{},
		&models.UploadedFile{},
	)

	st := store.NewGormStore(db)
	ledger := incentive.NewService(st)
	engine := checkin.NewService(st, ledger, cfg.CheckinRewardPoints, cfg.MakeupCostPoints)
	wechatClient := wechat.NewClient(cfg.WechatAppID, cfg.WechatSecret)

	r := routes.SetupRouter(db, engine, ledger, wechatClient)

	// Background sweep for expired proof uploads (best-effort)
	utils.StartUploadCleaner(db, 5*time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
