package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/lifeadmin/internal/app"
	"github.com/charlesng35/lifeadmin/internal/app/scheduler"
	"github.com/charlesng35/lifeadmin/pkg/logger"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

type options struct {
	configPath string
	once       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "lifeadmin: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("lifeadmin-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration directory or file")
	fs.BoolVar(&opts.once, "once", false, "Run every reminder sweep once and exit without serving HTTP")
	err := fs.Parse(args)
	return opts, err
}

func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(opts.configPath)
	if err != nil {
		return err
	}

	generated, err := app.ApplyRuntimeDefaults(cfg)
	if err != nil {
		return err
	}
	if err := app.ConfigureLogging(cfg.Server.LogLevel, cfg.Server.LogFormat); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync()

	log := logger.WithModule("bootstrap").With(zap.String("version", version))
	for _, key := range generated {
		log.Warn("generated runtime secret; tokens will not survive a restart", zap.String("key", key))
	}
	if err := ensureSecretsPresent(cfg); err != nil {
		return err
	}

	if opts.once {
		// cron must not fire while the one-shot run holds the sweeps.
		cfg.Scheduler.Enabled = false
	}

	stack, err := bootstrapRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}

	if opts.once {
		defer stack.Shutdown(context.Background(), log)
		return runOnce(ctx, stack.Scheduler, log)
	}
	return serve(ctx, cfg, stack, log)
}

// runOnce executes the full sweep plan synchronously. Per-sweep failures are logged and
// turned into a non-zero exit so cron wrappers notice them.
func runOnce(ctx context.Context, s *scheduler.Scheduler, log *zap.Logger) error {
	report, err := s.TriggerNow(ctx)
	if err != nil {
		return fmt.Errorf("run sweeps: %w", err)
	}

	failed := 0
	for _, sweep := range report.Sweeps {
		fields := []zap.Field{
			zap.String("sweep", sweep.Sweep),
			zap.Int("found", sweep.Found),
			zap.Int("updated", sweep.Updated),
			zap.Int("notified", sweep.Notified),
			zap.Int("suppressed", sweep.Suppressed),
			zap.Duration("duration", sweep.Duration),
		}
		if sweep.Error != "" {
			failed++
			log.Error("sweep failed", append(fields, zap.String("error", sweep.Error))...)
			continue
		}
		log.Info("sweep finished", fields...)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sweeps failed", failed, len(report.Sweeps))
	}
	return nil
}

func serve(ctx context.Context, cfg *app.Config, stack *runtimeStack, log *zap.Logger) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           stack.Router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		stack.Shutdown(context.Background(), log)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	stack.Shutdown(shutdownCtx, log)
	if err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// loadApplicationConfig accepts either a directory holding config.yaml or the file itself.
func loadApplicationConfig(path string) (*app.Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return app.LoadConfig()
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("config path %q does not exist", path)
	case err != nil:
		return nil, fmt.Errorf("stat config path: %w", err)
	case info.IsDir():
		return app.LoadConfig(path)
	default:
		return app.LoadConfig(filepath.Dir(path))
	}
}

func ensureSecretsPresent(cfg *app.Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Auth.JWT.Secret = strings.TrimSpace(cfg.Auth.JWT.Secret)
	if cfg.Auth.JWT.Secret == "" {
		return errors.New("auth.jwt.secret must be configured")
	}

	if wa := cfg.Notifications.WhatsApp; wa.Enabled {
		if strings.TrimSpace(wa.AccountSID) == "" || strings.TrimSpace(wa.AuthToken) == "" {
			return errors.New("notifications.whatsapp.account_sid and auth_token must be configured when whatsapp is enabled")
		}
	}
	return nil
}
