package poller

import (
	"context"
	"sync"

	"github.com/anicoll/yolink-integration/internal/pkg/model"
	"github.com/anicoll/yolink-integration/internal/pkg/yolink"
)

type mockTokens struct {
	ValidTokenFunc  func(ctx context.Context) (yolink.AccessToken, error)
	invalidateCalls int
	mu              sync.Mutex
}

func (m *mockTokens) ValidToken(ctx context.Context) (yolink.AccessToken, error) {
	if m.ValidTokenFunc != nil {
		return m.ValidTokenFunc(ctx)
	}
	return yolink.AccessToken{Token: "tok"}, nil
}

func (m *mockTokens) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidateCalls++
}

func (m *mockTokens) invalidated() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invalidateCalls
}

type mockAPI struct {
	ListDevicesFunc func(ctx context.Context, token yolink.AccessToken) ([]model.Device, error)
	FetchStateFunc  func(ctx context.Context, device model.Device, token yolink.AccessToken) (model.DeviceState, error)
}

func (m *mockAPI) ListDevices(ctx context.Context, token yolink.AccessToken) ([]model.Device, error) {
	if m.ListDevicesFunc != nil {
		return m.ListDevicesFunc(ctx, token)
	}
	return nil, nil
}

func (m *mockAPI) FetchState(ctx context.Context, device model.Device, token yolink.AccessToken) (model.DeviceState, error) {
	if m.FetchStateFunc != nil {
		return m.FetchStateFunc(ctx, device, token)
	}
	return model.DeviceState{}, nil
}

// recorder captures every published notification.
type recorder struct {
	mu    sync.Mutex
	got   []model.Notification
	onPub func(n model.Notification)
}

func (r *recorder) Publish(_ context.Context, n model.Notification) error {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
	if r.onPub != nil {
		r.onPub(n)
	}
	return nil
}

func (r *recorder) notifications() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Notification(nil), r.got...)
}
