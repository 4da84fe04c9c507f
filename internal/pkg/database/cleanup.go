package database

import (
	"context"
	"time"
)

// Cleanup removes devices that have not reported for longer than staleAfter.
func (db *Database) Cleanup(ctx context.Context, staleAfter time.Duration) (int64, error) {
	tag, err := db.pool.Exec(ctx, "DELETE FROM device_state WHERE updated_at < $1", time.Now().Add(-staleAfter))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
