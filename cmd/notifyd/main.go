// Command notifyd runs the notification delivery daemon as its own process,
// with its own database pool. Run it against the server's database with
// delivery.enabled set to false on the server, so only one daemon polls.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/config"
	"github.com/phrazzld/mission-control/internal/delivery"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/platform/sqlstore"
	"github.com/phrazzld/mission-control/internal/redact"
	"github.com/phrazzld/mission-control/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default: ./config.yaml or /etc/mission-control/config.yaml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("notifyd: %v", err)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := sqlstore.Open(ctx, cfg.Database, l)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			l.Error("error closing database connection", redact.ErrorAttr(err))
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := sqlstore.Migrate(ctx, db, l); err != nil {
			return err
		}
	}

	daemon, err := newDaemon(cfg, db, l)
	if err != nil {
		return err
	}
	return runDaemon(ctx, daemon, l)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// newDaemon builds the delivery daemon over the notification and identity stores.
func newDaemon(cfg *config.Config, db *sqlx.DB, l *slog.Logger) (*delivery.Daemon, error) {
	queue, err := service.NewNotificationQueue(
		sqlstore.NewNotificationStore(db, l),
		sqlstore.NewIdentityStore(db, l),
		l,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notification queue: %w", err)
	}

	dcfg := delivery.ConfigFrom(cfg.Delivery)
	l.Info("notification daemon configured",
		slog.Duration("poll_interval", dcfg.PollInterval),
		slog.Int("batch_size", dcfg.BatchSize),
		slog.Duration("max_backoff", dcfg.MaxBackoff))
	return delivery.NewDaemon(queue, dcfg, l), nil
}

// runDaemon blocks until ctx is cancelled and logs the final counters.
func runDaemon(ctx context.Context, d *delivery.Daemon, l *slog.Logger) error {
	err := d.Run(ctx)
	stats := d.Stats()
	l.Info("notification daemon stopped",
		slog.Int64("cycles", stats.Cycles),
		slog.Int64("failed_cycles", stats.FailedCycles),
		slog.Int64("skipped", stats.Skipped),
		slog.Int64("delivered", stats.Delivered),
		slog.Int64("failed", stats.Failed))
	return err
}
