package tools

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// ToolFunc defines a function executed asynchronously.
type ToolFunc func(ctx context.Context) error

// Dispatch runs fn in its own goroutine, fire-and-forget. The outcome is
// only logged.
func Dispatch(ctx context.Context, name string, fn ToolFunc) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("tool", name).Errorf("[dispatch] panic: %v", r)
			}
		}()

		start := time.Now()
		entry := log.WithField("tool", name)
		if err := fn(ctx); err != nil {
			entry.WithError(err).Error("[dispatch] failed")
			return
		}
		entry.WithField("duration_ms", time.Since(start).Milliseconds()).Info("[dispatch] done")
	}()
}
