package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/fileflow-app/fileflow/pkg/fileflow/models"
	"github.com/fileflow-app/fileflow/pkg/fileflow/repositories"
	"github.com/fileflow-app/fileflow/pkg/metrics"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	CodeLength      = 6
	MaxCodeAttempts = 5
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// CodeSource produces candidate codes.
type CodeSource func() string

// RandomCode draws CodeLength symbols from [A-Z0-9]. Not suitable as a
// cryptographic secret.
func RandomCode() string {
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidCode reports whether code is already in canonical form.
func IsValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(codeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

// CodeRegistry hands out codes and binds them to artifact metadata.
type CodeRegistry struct {
	repo    repositories.ArtifactRepository
	newCode CodeSource
}

func NewCodeRegistry(repo repositories.ArtifactRepository) *CodeRegistry {
	return NewCodeRegistryWithSource(repo, RandomCode)
}

func NewCodeRegistryWithSource(repo repositories.ArtifactRepository, src CodeSource) *CodeRegistry {
	return &CodeRegistry{repo: repo, newCode: src}
}

// GenerateUniqueCode returns a code no record currently uses. The check is
// advisory: Register still has to win the unique index.
func (r *CodeRegistry) GenerateUniqueCode(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= MaxCodeAttempts; attempt++ {
		code := r.newCode()
		count, err := r.repo.CountByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
		}
		if count == 0 {
			return code, nil
		}
		metrics.CodeCollisions.Inc()
		log.WithFields(log.Fields{"code": code, "attempt": attempt}).Debug("[registry] code already taken")
	}
	return "", ErrCodeGenerationExhausted
}

// Register inserts the record for code. ErrCodeTaken means another request
// inserted the same code first.
func (r *CodeRegistry) Register(ctx context.Context, code string, meta models.ArtifactMetadata) (*models.Artifact, error) {
	artifact := &models.Artifact{
		Code:      code,
		Filename:  meta.Filename,
		FilePath:  meta.FilePath,
		FileSize:  meta.FileSize,
		MimeType:  meta.MimeType,
		PublicUrl: meta.PublicUrl,
	}
	if err := r.repo.Create(ctx, artifact); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			metrics.CodeCollisions.Inc()
			return nil, ErrCodeTaken
		}
		return nil, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	return artifact, nil
}

func (r *CodeRegistry) Lookup(ctx context.Context, code string) (*models.Artifact, error) {
	code = NormalizeCode(code)
	if !IsValidCode(code) {
		return nil, ErrNotFound
	}
	artifact, err := r.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	if artifact == nil {
		return nil, ErrNotFound
	}
	return artifact, nil
}

// KnownCodes reports which of codes have a record.
func (r *CodeRegistry) KnownCodes(ctx context.Context, codes []string) (map[string]bool, error) {
	known, err := r.repo.ExistingCodes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return known, nil
}
