package services

import (
	"context"
	"sync"

	"github.com/fileflow-app/fileflow/pkg/fileflow/models"
)

// stubRepo mocks ArtifactRepository; nil funcs fall back to an empty store.
type stubRepo struct {
	mu           sync.Mutex
	countFunc    func(ctx context.Context, code string) (int64, error)
	createFunc   func(ctx context.Context, a *models.Artifact) error
	findFunc     func(ctx context.Context, code string) (*models.Artifact, error)
	existingFunc func(ctx context.Context, codes []string) (map[string]bool, error)

	counts  int
	creates int
	finds   int
}

func (s *stubRepo) CountByCode(ctx context.Context, code string) (int64, error) {
	s.mu.Lock()
	s.counts++
	s.mu.Unlock()
	if s.countFunc == nil {
		return 0, nil
	}
	return s.countFunc(ctx, code)
}

func (s *stubRepo) Create(ctx context.Context, a *models.Artifact) error {
	s.mu.Lock()
	s.creates++
	s.mu.Unlock()
	if s.createFunc == nil {
		return nil
	}
	return s.createFunc(ctx, a)
}

func (s *stubRepo) FindByCode(ctx context.Context, code string) (*models.Artifact, error) {
	s.mu.Lock()
	s.finds++
	s.mu.Unlock()
	if s.findFunc == nil {
		return nil, nil
	}
	return s.findFunc(ctx, code)
}

func (s *stubRepo) ExistingCodes(ctx context.Context, codes []string) (map[string]bool, error) {
	if s.existingFunc == nil {
		return map[string]bool{}, nil
	}
	return s.existingFunc(ctx, codes)
}

func (s *stubRepo) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts + s.creates + s.finds
}

// sequence returns the given codes in order, wrapping around.
func sequence(codes ...string) CodeSource {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i%len(codes)]
		i++
		return c
	}
}

// pngBytes is a valid PNG signature followed by an IHDR chunk header.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
