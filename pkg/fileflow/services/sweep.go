package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync/atomic"

	"github.com/fileflow-app/fileflow/pkg/metrics"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const maxConcurrentRemovals = 4

// SweepOrphans removes blobs whose code has no record. Only objects older
// than the grace period are considered so in-flight uploads are left alone.
func (s *ImageService) SweepOrphans(ctx context.Context) (int, error) {
	blobs, err := s.blobs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	cutoff := s.now().Add(-s.sweepGrace)
	byCode := make(map[string][]string)
	for _, b := range blobs {
		if b.LastModified.After(cutoff) {
			continue
		}
		code := strings.TrimSuffix(b.Key, path.Ext(b.Key))
		if !IsValidCode(code) {
			continue
		}
		byCode[code] = append(byCode[code], b.Key)
	}
	if len(byCode) == 0 {
		return 0, nil
	}

	codes := make([]string, 0, len(byCode))
	for c := range byCode {
		codes = append(codes, c)
	}
	known, err := s.registry.KnownCodes(ctx, codes)
	if err != nil {
		return 0, err
	}

	var orphans []string
	for code, keys := range byCode {
		if !known[code] {
			orphans = append(orphans, keys...)
		}
	}

	sem := semaphore.NewWeighted(maxConcurrentRemovals)
	g, gctx := errgroup.WithContext(ctx)
	var removed atomic.Int64

	for _, key := range orphans {
		key := key
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			err := s.withTimeout(gctx, func(ctx context.Context) error { return s.blobs.Remove(ctx, key) })
			if err != nil {
				// one stuck object must not stop the rest
				log.WithError(err).WithField("key", key).Warn("[sweep] remove failed")
				return nil
			}
			removed.Add(1)
			metrics.OrphansRemoved.Inc()
			log.WithField("key", key).Info("[sweep] removed orphan")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(removed.Load()), err
	}
	return int(removed.Load()), ctx.Err()
}
