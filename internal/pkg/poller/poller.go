package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/yolink-integration/internal/pkg/model"
	"github.com/anicoll/yolink-integration/internal/pkg/yolink"
)

var errAlreadyStarted = errors.New("poller already started")

type tokenSource interface {
	ValidToken(ctx context.Context) (yolink.AccessToken, error)
	Invalidate()
}

type deviceAPI interface {
	ListDevices(ctx context.Context, token yolink.AccessToken) ([]model.Device, error)
	FetchState(ctx context.Context, device model.Device, token yolink.AccessToken) (model.DeviceState, error)
}

type publisher interface {
	Publish(ctx context.Context, n model.Notification) error
}

type Settings struct {
	Interval time.Duration
	// DeviceIDs restricts polling to these devices. Empty means every listed device.
	DeviceIDs []string
	// RequestDelay is waited between consecutive device state requests.
	RequestDelay time.Duration
}

// Poller runs one poll cycle immediately and then on a fixed interval. Cycles never overlap:
// a tick that fires while a cycle is running is dropped.
type Poller struct {
	tokens    tokenSource
	api       deviceAPI
	publisher publisher
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	schedule *schedule

	stage atomic.Value

	// cycleMu serialises cycles and guards lastKnown.
	cycleMu   sync.Mutex
	lastKnown map[string]model.DeviceState
}

func New(tokens tokenSource, api deviceAPI, publisher publisher) *Poller {
	p := &Poller{
		tokens:    tokens,
		api:       api,
		publisher: publisher,
		logger:    zap.L(),
		sleep:     sleepContext,
		lastKnown: make(map[string]model.DeviceState),
	}
	p.stage.Store(Idle)
	return p
}

func (p *Poller) Stage() Stage {
	return p.stage.Load().(Stage)
}

func (p *Poller) setStage(s Stage) {
	p.stage.Store(s)
	p.logger.Debug("poll stage", zap.String("stage", s.String()))
}

// Seed primes the last known state of devices, e.g. from persisted data after a restart.
func (p *Poller) Seed(states map[string]model.DeviceState) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()
	for id, state := range states {
		p.lastKnown[id] = state
	}
}

// Run starts polling and blocks until ctx is done.
func (p *Poller) Run(ctx context.Context, s Settings) error {
	if err := p.Start(ctx, s); err != nil {
		return err
	}
	<-ctx.Done()
	p.Stop()
	return ctx.Err()
}

func (p *Poller) Start(ctx context.Context, s Settings) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.schedule != nil {
		return errAlreadyStarted
	}
	p.schedule = p.newSchedule(ctx, s)
	return nil
}

// Restart replaces the running schedule with one using s. The old schedule is fully stopped
// first, so there is never more than one timer.
func (p *Poller) Restart(ctx context.Context, s Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.schedule != nil {
		p.schedule.stop()
	}
	p.schedule = p.newSchedule(ctx, s)
}

// Stop waits for a running cycle to finish and cancels all future ones.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.schedule == nil {
		return
	}
	p.schedule.stop()
	p.schedule = nil
	p.logger.Info("poller stopped")
}

func (p *Poller) newSchedule(ctx context.Context, s Settings) *schedule {
	logger := cronLogger{logger: p.logger.Sugar()}
	h := &schedule{
		cron: cron.New(cron.WithLogger(logger)),
	}
	h.job = cron.NewChain(cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() {
		h.run(func() {
			p.RunCycle(ctx, s)
		})
	}))
	h.cron.Schedule(cron.Every(s.Interval), h.job)
	h.cron.Start()

	p.logger.Info("scheduling device data fetch",
		zap.Duration("interval", s.Interval),
		zap.Strings("device_ids", s.DeviceIDs),
	)
	// first fetch right away, through the same job so it cannot overlap a tick.
	go h.job.Run()
	return h
}

// RunCycle performs one full poll and publishes the outcome. It never panics.
func (p *Poller) RunCycle(ctx context.Context, s Settings) model.Notification {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	p.logger.Info("starting full device data refresh")
	start := time.Now()
	n := p.collect(ctx, s)

	p.setStage(Publishing)
	p.publish(ctx, n)
	p.setStage(Idle)

	p.logger.Info("device data refresh finished",
		zap.String("kind", n.Kind.String()),
		zap.Int("devices", len(n.Snapshot)),
		zap.Duration("took", time.Since(start)),
	)
	return n
}

func (p *Poller) collect(ctx context.Context, s Settings) (n model.Notification) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("a critical error occurred during fetch", zap.Any("panic", r), zap.Stack("stack"))
			n = model.NewFailureNotification(model.CriticalFailure)
		}
	}()

	p.setStage(Authenticating)
	token, err := p.tokens.ValidToken(ctx)
	if err != nil {
		return p.failure(err)
	}

	p.setStage(ListingDevices)
	devices, err := p.api.ListDevices(ctx, token)
	if err != nil {
		var apiErr *yolink.APIError
		if errors.As(err, &apiErr) && apiErr.TokenRejected() {
			p.tokens.Invalidate()
		}
		return p.failure(err)
	}

	targets := filterDevices(devices, s.DeviceIDs)
	if len(targets) == 0 {
		p.logger.Warn("no matching devices found",
			zap.Int("listed", len(devices)),
			zap.Strings("device_ids", s.DeviceIDs),
		)
		return model.NewFailureNotification(model.NoMatchingDevicesFailure)
	}

	p.setStage(FetchingStates)
	p.logger.Info("fetching detailed state", zap.Int("devices", len(targets)))
	return model.NewSnapshotNotification(p.fetchStates(ctx, s, token, targets))
}

// fetchStates folds the devices into a snapshot, one sequential request at a time. A device
// whose request fails keeps its last known state.
func (p *Poller) fetchStates(ctx context.Context, s Settings, token yolink.AccessToken, devices []model.Device) model.Snapshot {
	known := make(map[string]model.DeviceState, len(devices))
	snapshot := lo.Reduce(devices, func(acc model.Snapshot, device model.Device, i int) model.Snapshot {
		if i > 0 && s.RequestDelay > 0 {
			if err := p.sleep(ctx, s.RequestDelay); err != nil {
				p.logger.Debug("request delay interrupted", zap.Error(err))
			}
		}
		p.logger.Debug("fetching device state",
			zap.Int("index", i+1),
			zap.Int("total", len(devices)),
			zap.String("device_id", device.DeviceID),
		)
		r := p.fetchDevice(ctx, token, device)
		if r.known {
			known[device.DeviceID] = r.state
		}
		acc[device.DeviceID] = device.WithData(r.state)
		return acc
	}, make(model.Snapshot, len(devices)))

	p.lastKnown = known
	return snapshot
}

type fetchResult struct {
	state model.DeviceState
	// known is false when the device has no real data yet and is marked unavailable.
	known bool
}

func (p *Poller) fetchDevice(ctx context.Context, token yolink.AccessToken, device model.Device) fetchResult {
	previous, ok := p.lastKnown[device.DeviceID]
	if !ok {
		previous = device.Data
	}

	state, err := p.api.FetchState(ctx, device, token)
	if err == nil {
		return fetchResult{state: model.MergeState(previous, state), known: true}
	}

	p.logger.Warn("could not fetch state for device",
		zap.String("device_id", device.DeviceID),
		zap.String("name", device.Name),
		zap.String("failure", model.PartialFailure.String()),
		zap.Error(err),
	)
	if len(previous) == 0 {
		return fetchResult{state: model.Unavailable()}
	}
	return fetchResult{state: previous, known: true}
}

func (p *Poller) failure(err error) model.Notification {
	kind := classify(err)
	p.logger.Error("device data refresh failed", zap.String("failure", kind.String()), zap.Error(err))
	return model.NewFailureNotification(kind)
}

func (p *Poller) publish(ctx context.Context, n model.Notification) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("publisher panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	if err := p.publisher.Publish(ctx, n); err != nil {
		p.logger.Error("failed to publish poll result", zap.Error(err))
	}
}

func classify(err error) model.FailureKind {
	switch {
	case errors.Is(err, yolink.ErrAuth):
		return model.AuthFailure
	case errors.Is(err, yolink.ErrAPI):
		return model.ApiFailure
	default:
		return model.CriticalFailure
	}
}

func filterDevices(devices []model.Device, ids []string) []model.Device {
	if len(ids) == 0 {
		return devices
	}
	allowed := lo.Keyify(ids)
	return lo.Filter(devices, func(d model.Device, _ int) bool {
		_, ok := allowed[d.DeviceID]
		return ok
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("sleep: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
