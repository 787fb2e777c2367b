// Package main runs the mission-control API server: the HTTP surface, the live
// activity stream and, when enabled, the notification delivery daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/phrazzld/mission-control/internal/config"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/platform/sqlstore"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default: ./config.yaml or /etc/mission-control/config.yaml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("mission-control server: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	l.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("database_driver", cfg.Database.Driver),
		slog.Bool("delivery_enabled", cfg.Delivery.Enabled),
		slog.Bool("redis_enabled", cfg.Redis.Enabled()))

	ctx := context.Background()
	db, err := sqlstore.Open(ctx, cfg.Database, l)
	if err != nil {
		return err
	}
	if cfg.Database.AutoMigrate {
		if err := sqlstore.Migrate(ctx, db, l); err != nil {
			_ = db.Close()
			return err
		}
	}

	app, err := newApplication(ctx, cfg, l, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
