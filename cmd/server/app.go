package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/mission-control/internal/broadcast"
	"github.com/phrazzld/mission-control/internal/config"
	"github.com/phrazzld/mission-control/internal/delivery"
	"github.com/phrazzld/mission-control/internal/events"
	"github.com/phrazzld/mission-control/internal/platform/redis"
	"github.com/phrazzld/mission-control/internal/platform/sqlstore"
	"github.com/phrazzld/mission-control/internal/redact"
	"github.com/phrazzld/mission-control/internal/service"
	"github.com/phrazzld/mission-control/internal/service/auth"
	"github.com/phrazzld/mission-control/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sqlx.DB

	identities    store.IdentityStore
	threads       store.ThreadStore
	comments      store.CommentStore
	subscriptions store.SubscriptionStore
	notifications store.NotificationStore

	jwtService    auth.JWTService
	serviceTokens *auth.ServiceTokenVerifier

	registry    *service.SubscriptionRegistry
	queue       *service.NotificationQueue
	mentions    *service.MentionNotifier
	publisher   *service.ActivityPublisher
	commentSvc  *service.CommentService
	assignments *service.AssignmentService

	// Live stream. emitter is the hub itself, or the Redis relay when one is
	// configured; the relay forwards every instance's events to the hub.
	hub     *broadcast.Hub
	emitter events.EventEmitter
	rdb     *goredis.Client
	relay   *redis.Relay

	daemon *delivery.Daemon
}

// newApplication creates a new application instance with all dependencies initialized.
// The database must already be open and migrated.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sqlx.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.serviceTokens, err = auth.NewServiceTokenVerifier(cfg.Auth.ServiceTokens, auth.NewBcryptVerifier())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize service tokens: %w", err)
	}
	logger.Info("authentication initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes),
		slog.Int("service_tokens", app.serviceTokens.Len()))

	app.identities = sqlstore.NewIdentityStore(db, logger)
	app.threads = sqlstore.NewThreadStore(db, logger)
	app.comments = sqlstore.NewCommentStore(db, logger)
	app.subscriptions = sqlstore.NewSubscriptionStore(db, logger)
	app.notifications = sqlstore.NewNotificationStore(db, logger)

	app.hub = broadcast.NewHub(broadcast.Config{
		ClientBuffer:      cfg.Stream.ClientBuffer,
		HeartbeatInterval: cfg.Stream.HeartbeatInterval,
	}, logger)

	if err := app.setupEmitter(ctx); err != nil {
		return nil, err
	}

	if err := app.setupServices(); err != nil {
		return nil, err
	}

	if cfg.Delivery.Enabled {
		app.daemon = delivery.NewDaemon(app.queue, delivery.ConfigFrom(cfg.Delivery), logger)
	}

	logger.Info("application initialized")
	return app, nil
}

func (app *application) setupEmitter(ctx context.Context) error {
	if !app.config.Redis.Enabled() {
		local := events.NewInMemoryEventEmitter(app.logger)
		local.RegisterHandler(app.hub)
		app.emitter = local
		return nil
	}

	rdb, err := redis.NewClient(app.config.Redis.URL)
	if err != nil {
		return err
	}
	relay, err := redis.NewRelay(rdb, app.config.Redis.Instance, app.hub, app.logger)
	if err != nil {
		_ = rdb.Close()
		return err
	}
	if err := relay.Start(ctx); err != nil {
		_ = rdb.Close()
		return err
	}
	app.rdb, app.relay, app.emitter = rdb, relay, relay
	return nil
}

func (app *application) setupServices() error {
	var err error
	if app.registry, err = service.NewSubscriptionRegistry(app.subscriptions, app.threads, app.logger); err != nil {
		return err
	}
	if app.queue, err = service.NewNotificationQueue(app.notifications, app.identities, app.logger); err != nil {
		return err
	}
	if app.mentions, err = service.NewMentionNotifier(app.identities, app.queue, app.logger); err != nil {
		return err
	}
	if app.publisher, err = service.NewActivityPublisher(app.mentions, app.emitter, app.logger); err != nil {
		return err
	}

	tx := store.DBTxRunner{DB: app.db}
	app.commentSvc, err = service.NewCommentService(tx, app.identities, app.threads, app.comments,
		app.registry, app.queue, app.mentions, app.logger)
	if err != nil {
		return err
	}
	app.assignments, err = service.NewAssignmentService(tx, app.identities, app.threads,
		app.registry, app.queue, app.logger)
	return err
}

// Run starts the delivery daemon and the HTTP server and blocks until the
// server has shut down.
func (app *application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	daemonDone := make(chan struct{})
	if app.daemon != nil {
		go func() {
			defer close(daemonDone)
			if err := app.daemon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				app.logger.Error("delivery daemon stopped", redact.ErrorAttr(err))
			}
		}()
	} else {
		close(daemonDone)
	}

	err := app.startHTTPServer(ctx, app.setupRouter())
	cancel()
	<-daemonDone
	app.cleanup()
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	app.hub.Close()

	if app.relay != nil {
		if err := app.relay.Close(); err != nil {
			app.logger.Error("error closing redis relay", redact.ErrorAttr(err))
		}
	}
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Error("error closing redis client", redact.ErrorAttr(err))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", redact.ErrorAttr(err))
		}
	}

	app.logger.Info("application shutdown completed")
}
