package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/EternisAI/vpn-admin-bot/internal/db"
)

const (
	image          = "postgres:17-alpine"
	startupTimeout = 30 * time.Second
)

// Database is a throwaway Postgres holding the audit trail under test.
type Database struct {
	container *postgres.PostgresContainer
	Config    db.Config
}

// Start runs a container and returns the db.Config the bot would use to
// reach it, with the audit tables kept in schema.
func Start(ctx context.Context, name, schema string) (*Database, error) {
	container, err := postgres.Run(ctx, image,
		postgres.WithUsername(name),
		postgres.WithPassword(name),
		postgres.WithDatabase(name),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout)),
	)
	if err != nil {
		return nil, fmt.Errorf("start audit database: %w", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("audit database connection string: %w", err)
	}

	return &Database{
		container: container,
		Config:    db.Config{Url: url, Schema: schema},
	}, nil
}

func (d *Database) Stop(ctx context.Context) error {
	if err := d.container.Terminate(ctx); err != nil {
		return fmt.Errorf("stop audit database: %w", err)
	}
	return nil
}
