package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/yolink-integration/internal/pkg/contxt"
	"github.com/anicoll/yolink-integration/internal/pkg/model"
)

const defaultWriteTimeout = 10 * time.Second

var errAlreadyRegistered = errors.New("publisher already registered")

type publisher interface {
	// Publish hands a notification to the sink. The snapshot is shared between sinks and must not be modified.
	Publish(ctx context.Context, n model.Notification) error
}

// Registry fans notifications out to every registered sink.
type Registry struct {
	mu           sync.RWMutex
	publishers   map[string]publisher
	logger       *zap.Logger
	writeTimeout time.Duration
}

func New() *Registry {
	return &Registry{
		publishers:   make(map[string]publisher),
		logger:       zap.L(),
		writeTimeout: defaultWriteTimeout,
	}
}

func (r *Registry) RegisterPublisher(name string, p publisher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.publishers[name]; ok {
		return fmt.Errorf("%s: %w", name, errAlreadyRegistered)
	}
	r.publishers[name] = p
	return nil
}

// Publish delivers n to every sink. A failing sink does not stop delivery to the others.
func (r *Registry) Publish(ctx context.Context, n model.Notification) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for name, p := range r.publishers {
		wctx, cancel := contxt.NewContext(ctx, r.writeTimeout)
		err := p.Publish(wctx, n)
		cancel()
		if err != nil {
			r.logger.Error("failed to publish notification", zap.Error(err), zap.String("publisher", name))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		r.logger.Debug("published notification", zap.String("publisher", name), zap.String("kind", n.Kind.String()), zap.Int("devices", len(n.Snapshot)))
	}
	return errors.Join(errs...)
}
