package instrument

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureTable creates the _events table if it does not already exist,
// mirroring the shape EventBuffer.Flush and the handler queries assume.
func (eb *EventBuffer) EnsureTable(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS "_events" (
  "id" BIGSERIAL PRIMARY KEY,
  "trace_id" TEXT NOT NULL,
  "span_id" TEXT NOT NULL,
  "parent_span_id" TEXT,
  "event_type" TEXT NOT NULL,
  "name" TEXT NOT NULL,
  "entity" TEXT,
  "record_id" TEXT,
  "duration_ms" DOUBLE PRECISION,
  "status" TEXT,
  "metadata" JSONB,
  "created_at" TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := eb.pool.Exec(ctx, stmt); err != nil {
		return err
	}
	_, err := eb.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS "_events_trace_id_idx" ON "_events"("trace_id")`)
	return err
}

// Start is a no-op retained for symmetry with Stop; NewEventBuffer already
// starts its flush ticker goroutine.
func (eb *EventBuffer) Start() {}
