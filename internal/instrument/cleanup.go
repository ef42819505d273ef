package instrument

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CleanupOldEvents deletes events older than retentionDays from the _events
// table.
func CleanupOldEvents(ctx context.Context, pool *pgxpool.Pool, retentionDays int) {
	tag, err := pool.Exec(ctx, `DELETE FROM _events WHERE created_at < NOW() - ($1 || ' days')::interval`, retentionDays)
	if err != nil {
		log.Printf("ERROR: event cleanup: %v", err)
		return
	}
	if n := tag.RowsAffected(); n > 0 {
		log.Printf("event cleanup: deleted %d old events", n)
	}
}
