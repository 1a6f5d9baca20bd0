package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/fileflow-app/fileflow/pkg/fileflow/helpers/httpclient"
	"github.com/fileflow-app/fileflow/pkg/fileflow/models"
	"github.com/fileflow-app/fileflow/pkg/fileflow/storage"
	"github.com/fileflow-app/fileflow/pkg/metrics"
	"github.com/gabriel-vasile/mimetype"
	log "github.com/sirupsen/logrus"
)

const (
	MaxUploadBytes int64 = 10 << 20

	defaultExtension     = "png"
	defaultLinkFilename  = "shared-image"
	defaultTimeout       = 10 * time.Second
	defaultSweepGrace    = time.Hour
	compensationDeadline = 30 * time.Second
)

type Options struct {
	// Timeout bounds every single call to an external store.
	Timeout    time.Duration
	SweepGrace time.Duration
}

// ImageService implements uploads, link shares and viewing on top of the
// code registry, the access gate and the blob store.
type ImageService struct {
	registry   *CodeRegistry
	gate       *AccessGate
	blobs      storage.BlobStore
	timeout    time.Duration
	sweepGrace time.Duration

	probe func(ctx context.Context, rawURL string) (string, error)
	now   func() time.Time
}

func NewImageService(registry *CodeRegistry, gate *AccessGate, blobs storage.BlobStore, opts Options) *ImageService {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.SweepGrace <= 0 {
		opts.SweepGrace = defaultSweepGrace
	}
	return &ImageService{
		registry:   registry,
		gate:       gate,
		blobs:      blobs,
		timeout:    opts.Timeout,
		sweepGrace: opts.SweepGrace,
		probe:      httpclient.ProbeImage,
		now:        time.Now,
	}
}

type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (s *ImageService) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

// EnsureBucket is idempotent.
func (s *ImageService) EnsureBucket(ctx context.Context) error {
	if err := s.withTimeout(ctx, s.blobs.EnsureBucket); err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return nil
}

// ValidateUpload checks what is known before any byte is read or any store
// is contacted. An empty or generic content type is resolved later by
// sniffing the content.
func ValidateUpload(contentType string, size int64) error {
	if size > MaxUploadBytes {
		return ErrFileTooLarge
	}
	if size == 0 {
		return ErrEmptyFile
	}
	mt := mediaType(contentType)
	if mt != "" && mt != "application/octet-stream" && !strings.HasPrefix(mt, "image/") {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, mt)
	}
	return nil
}

func (s *ImageService) Upload(ctx context.Context, in UploadInput) (artifact *models.Artifact, err error) {
	defer func() { recordOutcome("upload", err) }()

	if err := ValidateUpload(in.ContentType, int64(len(in.Data))); err != nil {
		return nil, err
	}
	detected := mediaType(mimetype.Detect(in.Data).String())
	if !strings.HasPrefix(detected, "image/") {
		return nil, fmt.Errorf("%w: content looks like %s", ErrUnsupportedType, detected)
	}
	contentType := mediaType(in.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = detected
	}

	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		filename = "image." + defaultExtension
	}
	ext := extensionOf(filename)

	for attempt := 1; attempt <= MaxCodeAttempts; attempt++ {
		code, err := s.registry.GenerateUniqueCode(ctx)
		if err != nil {
			return nil, err
		}
		if attempt == 1 {
			if err := s.EnsureBucket(ctx); err != nil {
				return nil, err
			}
		}

		artifact, err = s.storeAndRegister(ctx, code, ext, filename, contentType, in.Data)
		if errors.Is(err, ErrCodeTaken) {
			log.WithFields(log.Fields{"code": code, "attempt": attempt}).Warn("[upload] lost race for code, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{"code": code, "key": artifact.FilePath, "size": artifact.FileSize}).Info("[upload] stored")
		return artifact, nil
	}
	return nil, ErrCodeGenerationExhausted
}

// storeAndRegister puts the blob and inserts the record. When the insert
// fails the blob is removed again. Put never overwrites, so a blob removed
// here is always one this call wrote.
func (s *ImageService) storeAndRegister(ctx context.Context, code, ext, filename, contentType string, data []byte) (*models.Artifact, error) {
	key := code + "." + ext
	sg := newSaga("upload " + key)

	err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	})
	if errors.Is(err, storage.ErrExists) {
		// another upload holds this key; nothing of ours to undo
		metrics.CodeCollisions.Inc()
		return nil, ErrCodeTaken
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	sg.push("remove blob", func(ctx context.Context) error {
		return s.withTimeout(ctx, func(ctx context.Context) error { return s.blobs.Remove(ctx, key) })
	})

	var artifact *models.Artifact
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		artifact, err = s.registry.Register(ctx, code, models.ArtifactMetadata{
			Filename:  filename,
			FilePath:  key,
			FileSize:  int64(len(data)),
			MimeType:  contentType,
			PublicUrl: s.blobs.PublicURL(key),
		})
		return err
	})
	if err != nil {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationDeadline)
		defer cancel()
		sg.compensate(cctx)
		return nil, err
	}
	return artifact, nil
}

// ShareLink registers an externally hosted image under a fresh code. Nothing
// is copied; the record points at the original URL.
func (s *ImageService) ShareLink(ctx context.Context, imageURL string) (artifact *models.Artifact, err error) {
	defer func() { recordOutcome("link", err) }()

	imageURL = strings.TrimSpace(imageURL)
	u, err := url.ParseRequestURI(imageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}

	var contentType string
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		contentType, err = s.probe(ctx, imageURL)
		return err
	})
	if err != nil {
		log.WithError(err).WithField("url", imageURL).Info("[share-link] probe failed")
		return nil, fmt.Errorf("%w: %w", ErrImageUnreachable, err)
	}

	meta := models.ArtifactMetadata{
		Filename:  linkFilename(u),
		FilePath:  imageURL,
		FileSize:  0,
		MimeType:  contentType,
		PublicUrl: imageURL,
	}
	for attempt := 1; attempt <= MaxCodeAttempts; attempt++ {
		code, err := s.registry.GenerateUniqueCode(ctx)
		if err != nil {
			return nil, err
		}
		err = s.withTimeout(ctx, func(ctx context.Context) error {
			var err error
			artifact, err = s.registry.Register(ctx, code, meta)
			return err
		})
		if errors.Is(err, ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return artifact, nil
	}
	return nil, ErrCodeGenerationExhausted
}

func (s *ImageService) Lookup(ctx context.Context, code string) (artifact *models.Artifact, err error) {
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		artifact, err = s.registry.Lookup(ctx, code)
		return err
	})
	return artifact, err
}

// Verify looks the artifact up and checks the candidate code against it.
func (s *ImageService) Verify(ctx context.Context, code, candidate, clientKey string) (*models.Artifact, error) {
	artifact, err := s.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		return s.gate.Verify(ctx, candidate, artifact, clientKey)
	})
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

func recordOutcome(kind string, err error) {
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrFileTooLarge), errors.Is(err, ErrEmptyFile), errors.Is(err, ErrUnsupportedType),
		errors.Is(err, ErrInvalidURL), errors.Is(err, ErrImageUnreachable):
		status = "rejected"
	default:
		status = "failed"
	}
	metrics.UploadsTotal.WithLabelValues(kind, status).Inc()
}

func mediaType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(ct)
	}
	return mt
}

func extensionOf(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" || len(ext) > 10 {
		return defaultExtension
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return defaultExtension
		}
	}
	return ext
}

func linkFilename(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return defaultLinkFilename
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return name
}
