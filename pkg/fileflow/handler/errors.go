package handler

import (
	"errors"

	"github.com/fileflow-app/fileflow/pkg/fileflow/helpers/problem"
	"github.com/fileflow-app/fileflow/pkg/fileflow/middleware"
	"github.com/fileflow-app/fileflow/pkg/fileflow/services"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// toProblem turns a service error into the problem the client sees. Anything
// not caused by the request itself is logged and reported as fallback.
func toProblem(ctx *gin.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrFileTooLarge):
		return problem.NewBadRequest("File too large. Maximum size is 10MB",
			problem.InvalidParam{Name: "file", Reason: "must be at most 10 MiB"})
	case errors.Is(err, services.ErrEmptyFile):
		return problem.NewBadRequest("No file provided",
			problem.InvalidParam{Name: "file", Reason: "is empty"})
	case errors.Is(err, services.ErrUnsupportedType):
		return problem.NewBadRequest("Only image files are allowed",
			problem.InvalidParam{Name: "file", Reason: "must be an image"})
	case errors.Is(err, services.ErrInvalidURL):
		return problem.NewBadRequest("Invalid URL format",
			problem.InvalidParam{Name: "imageUrl", Reason: "must be an absolute http(s) URL"})
	case errors.Is(err, services.ErrImageUnreachable):
		return problem.NewBadRequest("Unable to access image URL or URL does not point to a valid image",
			problem.InvalidParam{Name: "imageUrl", Reason: "must be reachable and serve an image/* content type"})
	case errors.Is(err, services.ErrCodeRequired):
		return problem.NewBadRequest("Verification code is required",
			problem.InvalidParam{Name: "code", Reason: "is required"})
	case errors.Is(err, services.ErrInvalidCode):
		return problem.NewBadRequest("Invalid verification code",
			problem.InvalidParam{Name: "code", Reason: "does not match"})
	case errors.Is(err, services.ErrNotFound):
		return problem.NewNotFound("Image not found")
	case errors.Is(err, services.ErrTooManyAttempts):
		return problem.NewTooManyRequests("Too many verification attempts, try again later")
	}

	log.WithError(err).WithFields(log.Fields{
		"request_id": middleware.RequestIDFrom(ctx),
		"path":       ctx.Request.URL.Path,
	}).Error(fallback)
	return problem.NewInternalServerError(fallback)
}
