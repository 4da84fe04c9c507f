package cmd

import (
	"context"
	"time"

	"github.com/anicoll/yolink-integration/internal/pkg/model"
	"github.com/anicoll/yolink-integration/internal/pkg/poller"
)

// PollerService is what run expects from the polling orchestrator.
type PollerService interface {
	Run(ctx context.Context, s poller.Settings) error
	Seed(states map[string]model.DeviceState)
}

// StateStore is the optional persistent sink.
type StateStore interface {
	LoadLatest(ctx context.Context) (map[string]model.DeviceState, error)
	Cleanup(ctx context.Context, staleAfter time.Duration) (int64, error)
}
