package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/anicoll/yolink-integration/internal/pkg/model"
)

const upsertSQL = `
	INSERT INTO device_state (device_id, name, device_type, model_name, data, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (device_id) DO UPDATE SET
		name = EXCLUDED.name,
		device_type = EXCLUDED.device_type,
		model_name = EXCLUDED.model_name,
		data = EXCLUDED.data,
		updated_at = EXCLUDED.updated_at`

// Publish stores the snapshot of a successful cycle. Only one row per device is kept and
// devices that were never seen are skipped.
func (db *Database) Publish(ctx context.Context, n model.Notification) error {
	if n.Kind != model.SensorData {
		return nil
	}

	batch := &pgx.Batch{}
	for _, d := range n.Snapshot {
		if !d.Data.Available() {
			continue
		}
		batch.Queue(upsertSQL, d.DeviceID, d.Name, d.Type.String(), d.ModelName, d.Data, n.Time)
	}
	if batch.Len() == 0 {
		return nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
