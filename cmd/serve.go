package cmd

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"loro-platform/config"
	"loro-platform/handlers"
	"loro-platform/middleware"
	"loro-platform/realtime"
	"loro-platform/services"
	"loro-platform/utils"
	"loro-platform/workers"
)

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, WebSocket hub, scheduler and identity sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not run AutoMigrate on startup")
}

func serve(ctx context.Context) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	if !skipMigrate {
		if err := migrate(db); err != nil {
			return err
		}
	}

	var store services.ObjectStore
	if cfg.Storage.Enabled() {
		r2, err := utils.NewR2Store(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to initialize R2 client: %w", err)
		}
		store = r2
	} else {
		log.Warn("⚠️ [STORAGE] not configured, payslip uploads are disabled")
	}

	hub := realtime.NewHub(64)
	licenses := services.NewLicenseService(db, cfg.LicenseCacheSize, cfg.LicenseCacheTTL)
	notifications := services.NewNotificationService(db, hub)
	rewards := services.NewRewardsService(db, hub)
	news := services.NewNewsService(db, hub)
	users := services.NewUserService(db, rewards)

	deps := handlers.Deps{
		Config:        cfg,
		DB:            db,
		Verifier:      middleware.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		Features:      config.DefaultFeatureMap(),
		Hub:           hub,
		Licenses:      licenses,
		Rewards:       rewards,
		Assets:        services.NewAssetService(db),
		Leave:         services.NewLeaveService(db, notifications, rewards, hub),
		News:          news,
		Payslips:      services.NewPayslipService(db, store, cfg.Storage.SignedURLTTL),
		Resellers:     services.NewResellerService(db),
		Shop:          services.NewShopService(db, hub, notifications, rewards),
		Users:         users,
		Notifications: notifications,
	}

	sched, err := services.NewScheduler(services.SchedulerDeps{
		News:     news,
		Licenses: licenses,
		Tips:     services.NewSalesTipBroadcaster(db, notifications, cfg.SalesTipsBatchSize, cfg.SalesTipsBatchDelay),
		TipsCron: cfg.SalesTipsCron,
		Location: cfg.Location(),
	})
	if err != nil {
		return fmt.Errorf("failed to build scheduler: %w", err)
	}
	sched.Start()

	if cfg.IdentitySyncEnabled() {
		workers.NewIdentitySyncWorker(users, cfg.IdentitySyncURL, cfg.IdentityServiceToken, cfg.IdentitySyncInterval).Start(ctx)
	} else {
		log.Println("⚠️ [SYNC] IDENTITY_SYNC_URL not set, identity sync worker disabled")
	}

	app := handlers.NewApp(deps)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 Server running on :%s", cfg.Port)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		_ = sched.Shutdown()
		return err
	case <-ctx.Done():
	}

	log.Println("⏹️ Shutting down…")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorf("❌ server shutdown: %v", err)
	}
	if err := sched.Shutdown(); err != nil {
		log.Errorf("❌ scheduler shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Println("✅ Shutdown complete")
	return nil
}
