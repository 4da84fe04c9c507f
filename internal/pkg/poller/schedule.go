package poller

import (
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// schedule is one cron handle. Stopping it waits for a running cycle and prevents any queued
// run from starting, so a replacement schedule never overlaps with it.
type schedule struct {
	cron *cron.Cron
	job  cron.Job

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func (h *schedule) run(f func()) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()

	defer h.wg.Done()
	f()
}

func (h *schedule) stop() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()

	<-h.cron.Stop().Done()
	h.wg.Wait()
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
