package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	insertEventSQL = `INSERT INTO audit_events (id, occurred_at, principal, action, client, outcome, detail)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	listRecentSQL = `SELECT id, occurred_at, principal, action, client, outcome, detail
FROM audit_events
ORDER BY occurred_at DESC, id DESC
LIMIT $1`
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	if s.pool == nil {
		return ErrStoreClosed
	}
	_, err := s.pool.Exec(ctx, insertEventSQL,
		pgtype.UUID{Bytes: event.ID, Valid: true},
		pgtype.Timestamptz{Time: event.Timestamp, Valid: true},
		event.Principal,
		string(event.Action),
		pgtype.Text{String: event.Client, Valid: event.Client != ""},
		event.Outcome,
		pgtype.Text{String: event.Detail, Valid: event.Detail != ""},
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	if s.pool == nil {
		return nil, ErrStoreClosed
	}
	// LIMIT NULL returns every row, matching MemoryStore
	lim := pgtype.Int4{Int32: int32(limit), Valid: limit > 0}
	rows, err := s.pool.Query(ctx, listRecentSQL, lim)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var (
			id         pgtype.UUID
			occurredAt pgtype.Timestamptz
			action     string
			client     pgtype.Text
			detail     pgtype.Text
			e          Event
		)
		if err := row.Scan(&id, &occurredAt, &e.Principal, &action, &client, &e.Outcome, &detail); err != nil {
			return Event{}, err
		}
		e.ID = id.Bytes
		e.Timestamp = occurredAt.Time
		e.Action = Action(action)
		e.Client = client.String
		e.Detail = detail.String
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan audit events: %w", err)
	}
	return events, nil
}
