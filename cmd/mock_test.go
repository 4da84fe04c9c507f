package cmd

import (
	"context"
	"time"

	"github.com/anicoll/yolink-integration/internal/pkg/model"
	"github.com/anicoll/yolink-integration/internal/pkg/poller"
)

// MockPoller is a mock implementation of the PollerService interface.
type MockPoller struct {
	RunFunc  func(ctx context.Context, s poller.Settings) error
	SeedFunc func(states map[string]model.DeviceState)
}

func (m *MockPoller) Run(ctx context.Context, s poller.Settings) error {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, s)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *MockPoller) Seed(states map[string]model.DeviceState) {
	if m.SeedFunc != nil {
		m.SeedFunc(states)
	}
}

// MockStore is a mock implementation of the StateStore interface.
type MockStore struct {
	LoadLatestFunc func(ctx context.Context) (map[string]model.DeviceState, error)
	CleanupFunc    func(ctx context.Context, staleAfter time.Duration) (int64, error)
}

func (m *MockStore) LoadLatest(ctx context.Context) (map[string]model.DeviceState, error) {
	if m.LoadLatestFunc != nil {
		return m.LoadLatestFunc(ctx)
	}
	return nil, nil
}

func (m *MockStore) Cleanup(ctx context.Context, staleAfter time.Duration) (int64, error) {
	if m.CleanupFunc != nil {
		return m.CleanupFunc(ctx, staleAfter)
	}
	return 0, nil
}
