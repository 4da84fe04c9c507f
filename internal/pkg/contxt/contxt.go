package contxt

import (
	"context"
	"os"
	"time"
)

// NewContext derives a context bounded by timeout. With CONTEXT_TEST set the timeout is skipped
// so tests can step through slow sinks.
func NewContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if os.Getenv("CONTEXT_TEST") != "" || timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
