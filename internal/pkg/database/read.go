package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/anicoll/yolink-integration/internal/pkg/model"
)

// LoadLatest returns the stored state of every device, keyed by device id.
func (db *Database) LoadLatest(ctx context.Context) (map[string]model.DeviceState, error) {
	rows, err := db.pool.Query(ctx, `SELECT device_id, data FROM device_state`)
	if err != nil {
		return nil, err
	}

	type row struct {
		DeviceID string
		Data     model.DeviceState
	}
	stored, err := pgx.CollectRows(rows, pgx.RowToStructByPos[row])
	if err != nil {
		return nil, err
	}

	states := make(map[string]model.DeviceState, len(stored))
	for _, r := range stored {
		states[r.DeviceID] = r.Data
	}
	return states, nil
}
