package repositories

import (
	"context"
	"errors"

	"github.com/fileflow-app/fileflow/pkg/fileflow/models"
	"github.com/teris-io/shortid"
	"gorm.io/gorm"
)

// ErrNoDatabase is returned when the service was started without a
// database connection.
var ErrNoDatabase = errors.New("record store not configured")

const existingCodesBatch = 1000

type ArtifactRepository interface {
	CountByCode(ctx context.Context, code string) (int64, error)
	Create(ctx context.Context, artifact *models.Artifact) error
	FindByCode(ctx context.Context, code string) (*models.Artifact, error)
	ExistingCodes(ctx context.Context, codes []string) (map[string]bool, error)
}

type artifactRepository struct {
	db *gorm.DB
}

func NewArtifactRepository(db *gorm.DB) ArtifactRepository {
	return &artifactRepository{db: db}
}

func (r *artifactRepository) CountByCode(ctx context.Context, code string) (int64, error) {
	if r.db == nil {
		return 0, ErrNoDatabase
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Artifact{}).
		Where("code = ?", code).
		Count(&count).Error
	return count, err
}

// Create inserts the row. A clash on the code index surfaces as
// gorm.ErrDuplicatedKey when the connection was opened with TranslateError.
func (r *artifactRepository) Create(ctx context.Context, artifact *models.Artifact) error {
	if r.db == nil {
		return ErrNoDatabase
	}
	if artifact.Id == "" {
		id, err := shortid.Generate()
		if err != nil {
			return err
		}
		artifact.Id = id
	}
	return r.db.WithContext(ctx).Create(artifact).Error
}

// FindByCode returns nil, nil when no row matches.
func (r *artifactRepository) FindByCode(ctx context.Context, code string) (*models.Artifact, error) {
	if r.db == nil {
		return nil, ErrNoDatabase
	}
	var artifact models.Artifact
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&artifact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &artifact, nil
}

// ExistingCodes reports which of codes have a row. Codes are queried in
// batches to stay under the driver's bind variable limit.
func (r *artifactRepository) ExistingCodes(ctx context.Context, codes []string) (map[string]bool, error) {
	if r.db == nil {
		return nil, ErrNoDatabase
	}
	found := make(map[string]bool, len(codes))
	if len(codes) == 0 {
		return found, nil
	}
	for start := 0; start < len(codes); start += existingCodesBatch {
		end := min(start+existingCodesBatch, len(codes))
		var existing []string
		err := r.db.WithContext(ctx).
			Model(&models.Artifact{}).
			Where("code IN ?", codes[start:end]).
			Pluck("code", &existing).Error
		if err != nil {
			return nil, err
		}
		for _, c := range existing {
			found[c] = true
		}
	}
	return found, nil
}
