package services

import (
	"context"

	log "github.com/sirupsen/logrus"
)

type compensation struct {
	name string
	fn   func(ctx context.Context) error
}

// saga collects undo steps as forward steps succeed. compensate runs them in
// reverse; a failing undo step is logged and the rest still run.
type saga struct {
	name  string
	steps []compensation
}

func newSaga(name string) *saga {
	return &saga{name: name}
}

func (s *saga) push(name string, fn func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, fn: fn})
}

// compensate returns how many steps failed.
func (s *saga) compensate(ctx context.Context) int {
	failed := 0
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.fn(ctx); err != nil {
			failed++
			log.WithError(err).WithFields(log.Fields{"saga": s.name, "step": step.name}).
				Warn("[saga] compensation failed")
			continue
		}
		log.WithFields(log.Fields{"saga": s.name, "step": step.name}).Info("[saga] compensated")
	}
	s.steps = nil
	return failed
}
