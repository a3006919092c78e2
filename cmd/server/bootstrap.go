package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dluzirna/dluzirna/internal/api"
	"github.com/dluzirna/dluzirna/internal/app"
	"github.com/dluzirna/dluzirna/internal/app/maintenance"
	iauth "github.com/dluzirna/dluzirna/internal/auth"
	"github.com/dluzirna/dluzirna/internal/cache"
	"github.com/dluzirna/dluzirna/internal/database"
	"github.com/dluzirna/dluzirna/internal/services"
	"github.com/dluzirna/dluzirna/pkg/logger"
	"github.com/dluzirna/dluzirna/pkg/mail"
)

// runtimeStack bundles the long-lived services behind the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Store    cache.Store
	Sessions *iauth.SessionService
	Users    *services.UserService
	Debts    *services.DebtService
	Audit    *services.AuditService
	Cleaner  *maintenance.Cleaner
	Router   *gin.Engine
}

// bootstrapRuntime initialises the database, cache, services and router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Store = cache.NewMemoryStore()
	if cfg.Cache.Redis.Enabled {
		redisStore, redisErr := cache.NewRedisStore(cache.RedisConfig{
			Address:  cfg.Cache.Redis.Address,
			Username: cfg.Cache.Redis.Username,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			TLS:      cfg.Cache.Redis.TLS,
			Timeout:  cfg.Cache.Redis.Timeout,
		})
		if redisErr != nil {
			log.Warn("redis unavailable; falling back to in-process counters", zap.Error(redisErr))
		} else {
			stack.Store = redisStore
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		AccessTokenTTL: cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Sessions, err = iauth.NewSessionService(stack.DB, jwtService, iauth.SessionConfig{
		RefreshTokenTTL: cfg.Auth.Session.RefreshTTL,
		RefreshLength:   cfg.Auth.Session.RefreshLength,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	stack.Audit, err = services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	stack.Users, err = services.NewUserService(stack.DB, stack.Audit)
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}

	notifier, err := buildNotifier(cfg, log)
	if err != nil {
		return nil, err
	}

	stack.Debts, err = services.NewDebtService(stack.DB, notifier, stack.Audit)
	if err != nil {
		return nil, fmt.Errorf("initialise debt service: %w", err)
	}

	if cfg.Maintenance.Enabled {
		stack.Cleaner = maintenance.NewCleaner(stack.Sessions, stack.Audit,
			maintenance.WithSessionSchedule(cfg.Maintenance.SessionSchedule),
			maintenance.WithAuditSchedule(cfg.Maintenance.AuditSchedule),
			maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
		)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(api.Deps{
		DB:       stack.DB,
		Config:   cfg,
		JWT:      jwtService,
		Sessions: stack.Sessions,
		Users:    stack.Users,
		Debts:    stack.Debts,
		Store:    stack.Store,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// buildNotifier wires the SMTP mailer into the notification service. With SMTP
// disabled, debts are still created and advance to notified; only delivery is
// skipped.
func buildNotifier(cfg *app.Config, log *zap.Logger) (services.DebtNotifier, error) {
	mailer, err := mail.NewSMTPMailer(mail.Settings{
		Enabled:  cfg.Email.SMTP.Enabled,
		Host:     cfg.Email.SMTP.Host,
		Port:     cfg.Email.SMTP.Port,
		Username: cfg.Email.SMTP.Username,
		Password: cfg.Email.SMTP.Password,
		From:     cfg.Email.SMTP.From,
		ReplyTo:  cfg.Email.SMTP.ReplyTo,
		UseTLS:   cfg.Email.SMTP.UseTLS,
		Timeout:  cfg.Email.SMTP.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	if !cfg.Email.SMTP.Enabled {
		log.Warn("smtp disabled; debt notifications will not be delivered")
	}

	notifications, err := services.NewNotificationService(mailer, cfg.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}
	return notifications, nil
}

// Shutdown releases the stack's resources in reverse dependency order.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if err := s.Cleaner.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if closer, ok := s.Store.(interface{ Close() error }); ok && closer != nil {
		if err := closer.Close(); err != nil {
			log.Warn("failed to close cache store", zap.Error(err))
		}
	}

	closeDatabase(s.DB, log)
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db, database.BootstrapAdmin{
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logger.Named("database").Info("database connected",
		zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql", "mariadb":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}

func loadApplicationConfig(path string) (*app.Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return app.LoadConfig()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}
	if info.IsDir() {
		return app.LoadConfig(path)
	}
	return app.LoadConfig(filepath.Dir(path))
}
