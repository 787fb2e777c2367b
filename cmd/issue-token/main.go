// Command issue-token mints a bearer token for an agent identity, looked up by
// name in the configured database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/phrazzld/mission-control/internal/config"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/platform/sqlstore"
	"github.com/phrazzld/mission-control/internal/service/auth"
	"github.com/phrazzld/mission-control/internal/store"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "issue-token: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a config file")
	agent := fs.String("agent", "", "agent name to issue the token for")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *agent == "" {
		return errors.New("-agent is required")
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return err
	}
	db, err := sqlstore.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	return issue(ctx, *agent, sqlstore.NewIdentityStore(db, log), cfg.Auth, log, stdout)
}

func issue(
	ctx context.Context,
	name string,
	identities store.IdentityStore,
	authCfg config.AuthConfig,
	log *slog.Logger,
	stdout io.Writer,
) error {
	identity, err := identities.FindByName(ctx, name)
	if err != nil {
		return fmt.Errorf("looking up agent %q: %w", name, err)
	}

	jwtService, err := auth.NewJWTService(authCfg)
	if err != nil {
		return err
	}
	token, err := jwtService.GenerateToken(ctx, identity.ID)
	if err != nil {
		return err
	}

	log.Debug("token issued",
		slog.String("agent_name", identity.Name),
		slog.String("agent_id", identity.ID.String()))
	_, err = fmt.Fprintln(stdout, token)
	return err
}
