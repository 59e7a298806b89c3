package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/lifeadmin/internal/api"
	"github.com/charlesng35/lifeadmin/internal/app"
	"github.com/charlesng35/lifeadmin/internal/app/scheduler"
	iauth "github.com/charlesng35/lifeadmin/internal/auth"
	"github.com/charlesng35/lifeadmin/internal/cache"
	"github.com/charlesng35/lifeadmin/internal/database"
	"github.com/charlesng35/lifeadmin/internal/lifecycle"
	"github.com/charlesng35/lifeadmin/internal/middleware"
	"github.com/charlesng35/lifeadmin/internal/models"
	"github.com/charlesng35/lifeadmin/internal/monitoring"
	"github.com/charlesng35/lifeadmin/internal/monitoring/checks"
	"github.com/charlesng35/lifeadmin/internal/notify"
	"github.com/charlesng35/lifeadmin/internal/services"
	"github.com/charlesng35/lifeadmin/internal/store"
	"github.com/charlesng35/lifeadmin/pkg/logger"
	"github.com/charlesng35/lifeadmin/pkg/mail"
)

const probeTimeout = 2 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB            *gorm.DB
	Redis         *cache.RedisStore
	Cache         cache.Store
	Monitoring    *monitoring.Module
	Notifications *services.NotificationService
	Scheduler     *scheduler.Scheduler
	Router        *gin.Engine
}

// bootstrapRuntime initialises the database, cache, channels, sweeps and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone: %w", err)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	st, err := store.New(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise store: %w", err)
	}

	stack.Cache = cache.NewDatabaseStore(stack.DB)
	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(err))
			stack.Redis = nil
		} else {
			stack.Cache = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	stack.Monitoring, err = monitoring.NewModule(monitoring.Options{Version: version})
	if err != nil {
		return nil, fmt.Errorf("initialise monitoring: %w", err)
	}
	monitoring.SetModule(stack.Monitoring)
	registerHealthChecks(stack, cfg)

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	dispatcher, err := buildDispatcher(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	stack.Notifications, err = services.NewNotificationService(st, dispatcher, services.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}

	sweeper, err := lifecycle.New(st, stack.Notifications, cfg.Scheduler.LifecycleOptions(loc)...)
	if err != nil {
		return nil, fmt.Errorf("initialise lifecycle sweeper: %w", err)
	}

	schedulerOpts := cfg.Scheduler.SchedulerOptions(loc)
	if cfg.Scheduler.DistributedLock {
		locker, lockErr := scheduler.NewCacheLocker(stack.Cache)
		if lockErr != nil {
			return nil, fmt.Errorf("initialise sweep locker: %w", lockErr)
		}
		schedulerOpts = append(schedulerOpts, scheduler.WithLocker(locker))
	}

	stack.Scheduler, err = scheduler.New(sweeper, schedulerOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise scheduler: %w", err)
	}
	if cfg.Scheduler.Enabled {
		if err := stack.Scheduler.Start(); err != nil {
			return nil, fmt.Errorf("start scheduler: %w", err)
		}
		log.Info("scheduler started",
			zap.String("timezone", loc.String()),
			zap.String("hourly", cfg.Scheduler.HourlySchedule),
			zap.String("transitions", cfg.Scheduler.TransitionSchedule))
	} else {
		log.Info("scheduler disabled; reminders run only on manual trigger")
	}

	stack.Router, err = api.NewRouter(cfg, jwtSvc, stack.Notifications, stack.Scheduler, stack.Monitoring, middleware.NewCacheRateStore(stack.Cache))
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func registerHealthChecks(stack *runtimeStack, cfg *app.Config) {
	health := stack.Monitoring.Health()
	health.RegisterReadiness(checks.Database(stack.DB, probeTimeout,
		&models.Task{}, &models.Appointment{}, &models.Notification{}, &models.NotificationReference{}))
	var redis checks.Pinger
	if stack.Redis != nil {
		redis = stack.Redis
	}
	health.RegisterReadiness(checks.Cache(redis, cfg.Cache.Redis.Enabled, probeTimeout))
	if cfg.Scheduler.Enabled {
		health.RegisterReadiness(checks.Sweeps(cfg.Monitoring.Health.SweepMaxAge, time.Now))
	}
}

// buildDispatcher wires the configured outbound channels. Channels left unconfigured are
// reported per notification rather than failing startup.
func buildDispatcher(ctx context.Context, cfg *app.Config, log *zap.Logger) (*notify.Dispatcher, error) {
	nc := cfg.Notifications
	opts := []notify.Option{
		notify.WithBranding(nc.BrandingSettings()),
		notify.WithLogger(logger.WithModule("notify")),
	}

	switch nc.Email.ProviderName() {
	case "":
		log.Info("email channel disabled")
	case app.EmailProviderSMTP:
		mailer, err := mail.NewSMTPMailer(nc.Email.SMTPSettings())
		if err != nil {
			return nil, fmt.Errorf("initialise smtp mailer: %w", err)
		}
		opts = append(opts, notify.WithEmailSender(notify.NewSMTPEmailSender(mailer, strings.TrimSpace(nc.Email.From))))
	case app.EmailProviderSES:
		// handled with the other AWS channels below
	default:
		return nil, fmt.Errorf("unsupported email provider %q", nc.Email.Provider)
	}

	if nc.UsesAWS() {
		awsCfg, err := notify.LoadAWSConfig(ctx, strings.TrimSpace(nc.AWS.Region))
		if err != nil {
			return nil, err
		}
		if nc.Email.ProviderName() == app.EmailProviderSES {
			sender, err := notify.NewSESEmailSender(ses.NewFromConfig(awsCfg), strings.TrimSpace(nc.Email.From))
			if err != nil {
				return nil, err
			}
			opts = append(opts, notify.WithEmailSender(sender))
		}
		if nc.SMS.Enabled {
			sender, err := notify.NewSNSSMSSender(sns.NewFromConfig(awsCfg), strings.TrimSpace(nc.SMS.SenderID))
			if err != nil {
				return nil, err
			}
			opts = append(opts, notify.WithSMSSender(sender))
		}
	}

	if nc.WhatsApp.Enabled {
		sender, err := notify.NewTwilioWhatsAppSender(nc.WhatsApp.TwilioSettings(), nil)
		if err != nil {
			return nil, err
		}
		opts = append(opts, notify.WithWhatsAppSender(sender))
	}

	return notify.NewDispatcher(opts...), nil
}

// Shutdown stops the scheduler and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Scheduler != nil {
		stopCtx := s.Scheduler.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			log.Warn("scheduler did not drain before shutdown deadline")
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.Monitoring != nil && monitoring.CurrentModule() == s.Monitoring {
		monitoring.SetModule(nil)
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

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
	case "mysql":
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
	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
