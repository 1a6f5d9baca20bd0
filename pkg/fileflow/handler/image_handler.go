package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/fileflow-app/fileflow/pkg/fileflow/helpers/problem"
	"github.com/fileflow-app/fileflow/pkg/fileflow/models"
	"github.com/fileflow-app/fileflow/pkg/fileflow/serializers"
	"github.com/fileflow-app/fileflow/pkg/fileflow/services"
	"github.com/gin-gonic/gin"
)

// multipartOverhead is allowed on top of the file itself for boundaries,
// part headers and the optional filename field.
const multipartOverhead = 1 << 20

// ImageController binds HTTP requests to the ImageService
type ImageController struct {
	Service *services.ImageService
}

// NewImageController creates a new controller
func NewImageController(s *services.ImageService) *ImageController {
	return &ImageController{Service: s}
}

// EnsureBucket handles POST /ensure-bucket
func (c *ImageController) EnsureBucket(ctx *gin.Context) (*models.BucketResponse, error) {
	if err := c.Service.EnsureBucket(ctx.Request.Context()); err != nil {
		return nil, toProblem(ctx, err, "Failed to ensure bucket exists")
	}
	return &models.BucketResponse{Success: true}, nil
}

// ShareLink handles POST /share-link
func (c *ImageController) ShareLink(ctx *gin.Context, body *models.ShareLinkInput) (*models.ShareResponse, error) {
	if strings.TrimSpace(body.ImageUrl) == "" {
		return nil, problem.NewBadRequest("Image URL is required",
			problem.InvalidParam{Name: "imageUrl", Reason: "is required"})
	}
	artifact, err := c.Service.ShareLink(ctx.Request.Context(), body.ImageUrl)
	if err != nil {
		return nil, toProblem(ctx, err, "Failed to save link share")
	}
	return serializers.SerializeShare(artifact), nil
}

// Upload handles POST /upload (multipart/form-data with "file" and an
// optional "filename")
func (c *ImageController) Upload(ctx *gin.Context) (*models.ShareResponse, error) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, services.MaxUploadBytes+multipartOverhead)

	fh, err := ctx.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			return nil, toProblem(ctx, services.ErrFileTooLarge, "")
		}
		return nil, problem.NewBadRequest("No file provided",
			problem.InvalidParam{Name: "file", Reason: "is required"})
	}
	if err := services.ValidateUpload(fh.Header.Get("Content-Type"), fh.Size); err != nil {
		return nil, toProblem(ctx, err, "Upload failed")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, toProblem(ctx, err, "Upload failed")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, services.MaxUploadBytes+1))
	if err != nil {
		return nil, toProblem(ctx, err, "Upload failed")
	}

	filename := strings.TrimSpace(ctx.PostForm("filename"))
	if filename == "" {
		filename = fh.Filename
	}

	artifact, err := c.Service.Upload(ctx.Request.Context(), services.UploadInput{
		Filename:    filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		return nil, toProblem(ctx, err, "Upload failed")
	}
	return serializers.SerializeShare(artifact), nil
}

// RetrieveImage handles GET /images/:code
func (c *ImageController) RetrieveImage(ctx *gin.Context, params *models.CodeParams) (*models.Artifact, error) {
	artifact, err := c.Service.Lookup(ctx.Request.Context(), params.Code)
	if err != nil {
		return nil, toProblem(ctx, err, "Failed to load image")
	}
	return artifact, nil
}

// VerifyImage handles POST /images/:code/verify
func (c *ImageController) VerifyImage(ctx *gin.Context, in *models.VerifyInput) (*models.Artifact, error) {
	artifact, err := c.Service.Verify(ctx.Request.Context(), in.Code, in.Candidate, ctx.ClientIP())
	if err != nil {
		return nil, toProblem(ctx, err, "Failed to verify code")
	}
	return artifact, nil
}

// SweepOrphans handles POST /admin/sweep
func (c *ImageController) SweepOrphans(ctx *gin.Context) (*models.SweepResult, error) {
	removed, err := c.Service.SweepOrphans(ctx.Request.Context())
	if err != nil {
		return nil, toProblem(ctx, err, "Orphan sweep failed")
	}
	return &models.SweepResult{Removed: removed}, nil
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
