package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/storefront/internal/api"
	"github.com/charlesng35/storefront/internal/app"
	"github.com/charlesng35/storefront/internal/app/maintenance"
	"github.com/charlesng35/storefront/internal/database"
	"github.com/charlesng35/storefront/internal/services"
	"github.com/charlesng35/storefront/internal/verification"
	"github.com/charlesng35/storefront/pkg/logger"
	"github.com/charlesng35/storefront/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	AuditSvc *services.AuditService
	Mailer   mail.Mailer
	Manager  *verification.Manager
	Cleaner  *maintenance.Cleaner
	Router   *gin.Engine
}

// bootstrapRuntime initialises the mail transport, verification manager,
// optional audit store, maintenance jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.Mailer, err = cfg.Email.NewMailer(ctx, cfg.Verification.SenderName, logger.WithModule("mail"))
	if err != nil {
		return nil, fmt.Errorf("initialise email transport: %w", err)
	}

	managerCfg, err := cfg.Verification.ManagerConfig()
	if err != nil {
		return nil, err
	}

	stack.Manager, err = verification.NewManager(managerCfg, stack.Mailer)
	if err != nil {
		return nil, fmt.Errorf("initialise verification manager: %w", err)
	}

	if cfg.Audit.Enabled {
		stack.DB, err = initialiseDatabase(cfg)
		if err != nil {
			return nil, err
		}
		stack.AuditSvc, err = services.NewAuditService(stack.DB)
		if err != nil {
			return nil, fmt.Errorf("initialise audit service: %w", err)
		}
	}

	stack.Cleaner = maintenance.NewCleaner(stack.Manager, stack.AuditSvc,
		maintenance.WithSweepSchedule(cfg.Verification.SweepSchedule),
		maintenance.WithAuditSchedule(cfg.Audit.Schedule),
		maintenance.WithAuditRetentionDays(cfg.Audit.RetentionDays),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(cfg, stack.Manager, stack.AuditSvc)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	log.Info("verification service ready",
		zap.String("transport", mail.Name(stack.Mailer)),
		zap.Strings("allowed_domains", managerCfg.AllowedDomains),
		zap.Bool("audit", stack.AuditSvc != nil),
	)

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		<-stopCtx.Done()
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
		s.DB = nil
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseSettings()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Prepare(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("prepare database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}
