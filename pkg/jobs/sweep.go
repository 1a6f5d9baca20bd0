package jobs

import (
	"context"
	"fmt"

	"github.com/fileflow-app/fileflow/pkg/tools"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Sweeper removes orphaned blobs and reports how many went.
type Sweeper interface {
	SweepOrphans(ctx context.Context) (int, error)
}

// ScheduleOrphanSweep runs svc.SweepOrphans on schedule until ctx is done.
// An empty schedule disables the job and returns nil.
func ScheduleOrphanSweep(ctx context.Context, svc Sweeper, schedule string) (*cron.Cron, error) {
	if schedule == "" {
		log.Info("[jobs] orphan sweep disabled")
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		tools.Dispatch(ctx, "orphan_sweep", func(ctx context.Context) error {
			removed, err := svc.SweepOrphans(ctx)
			if err != nil {
				return err
			}
			log.WithField("removed", removed).Info("[jobs] orphan sweep finished")
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("invalid orphan sweep schedule %q: %w", schedule, err)
	}
	c.Start()

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return c, nil
}
