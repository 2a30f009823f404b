package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/fitcrm/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
)

var _ Slot = (*PsqlSlot)(nil)

const createSlotTableSQL = `
	CREATE TABLE IF NOT EXISTS kv_slot (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`

// pgxQuerier is the subset of *pgxpool.Pool the slot uses
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PsqlSlot stores the blob as a single row of the kv_slot table.
type PsqlSlot struct {
	key string
	db  pgxQuerier
}

func NewPsqlSlot(db pgxQuerier, key string) *PsqlSlot {
	return &PsqlSlot{
		key: key,
		db:  db,
	}
}

// EnsureTable creates the kv_slot table if missing.
func (s *PsqlSlot) EnsureTable(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createSlotTableSQL); err != nil {
		return fmt.Errorf("create kv_slot table: %w", err)
	}
	return nil
}

func (s *PsqlSlot) Name() string {
	return s.key
}

func (s *PsqlSlot) Read(ctx context.Context) (_ []byte, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "storage.psqlSlot.read")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("slot.key", s.key))

	var value string
	err = s.db.QueryRow(
		ctx,
		`SELECT value FROM kv_slot WHERE key = $1;`,
		s.key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("select slot %s: %w", s.key, err)
	}

	return []byte(value), nil
}

func (s *PsqlSlot) Write(ctx context.Context, data []byte) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "storage.psqlSlot.write")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("slot.key", s.key))
	span.SetAttributes(attribute.Int("slot.size", len(data)))

	_, err = s.db.Exec(
		ctx,
		`
			INSERT INTO kv_slot (key, value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at;`,
		s.key, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert slot %s: %w", s.key, err)
	}
	return nil
}
