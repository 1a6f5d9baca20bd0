package fileflow

import (
	"errors"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/fileflow-app/fileflow/pkg/fileflow/helpers/problem"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/loopfz/gadgeto/tonic"
	log "github.com/sirupsen/logrus"
)

var errorHookOnce sync.Once

// registerErrorHook renders every handler error as application/problem+json.
func registerErrorHook() {
	errorHookOnce.Do(func() {
		tonic.SetErrorHook(func(c *gin.Context, err error) (int, interface{}) {
			c.Header("Content-Type", "application/problem+json")

			// 1) bind/validate errors → 400 with invalidParams
			var be tonic.BindError
			if errors.As(err, &be) || isValidationErr(err) {
				apiErr := problem.NewBadRequest("Invalid input", invalidParamsFromBinding(err)...)
				return apiErr.Status, apiErr
			}

			// 2) our own APIError → pass-through
			var apiErr problem.APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status, apiErr
			}

			// 3) anything else → 500 without internals
			log.WithError(err).WithField("path", c.Request.URL.Path).Error("unhandled handler error")
			internal := problem.NewInternalServerError("Internal server error")
			return internal.Status, internal
		})
	})
}

func invalidParamsFromBinding(err error) []problem.InvalidParam {
	var verrs validator.ValidationErrors
	var be tonic.BindError
	if errors.As(err, &be) {
		verrs = be.ValidationErrors()
	}
	if len(verrs) == 0 && !errors.As(err, &verrs) {
		return []problem.InvalidParam{{Name: "body", Reason: err.Error()}}
	}

	out := make([]problem.InvalidParam, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, problem.InvalidParam{
			Name:   lowerFirst(fe.Field()),
			Reason: humanReason(fe),
		})
	}
	return out
}

func humanReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL (e.g. https://…)"
	default:
		return fe.Error()
	}
}

func isValidationErr(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}

// lowerFirst maps a Go field name onto its JSON name (ImageUrl → imageUrl).
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
