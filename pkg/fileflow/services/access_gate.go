package services

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/fileflow-app/fileflow/pkg/fileflow/models"
	"github.com/fileflow-app/fileflow/pkg/fileflow/ratelimit"
	"github.com/fileflow-app/fileflow/pkg/metrics"
	log "github.com/sirupsen/logrus"
)

// AccessGate decides whether a viewer may see an artifact. The secret is
// the artifact's own code; nothing is remembered between calls except the
// optional failed-attempt counter.
type AccessGate struct {
	limiter ratelimit.Limiter
}

func NewAccessGate(limiter ratelimit.Limiter) *AccessGate {
	if limiter == nil {
		limiter = ratelimit.Unlimited()
	}
	return &AccessGate{limiter: limiter}
}

// Verify compares candidate with record.Code, ignoring case and surrounding
// whitespace. clientKey scopes the attempt counter (usually the client IP).
func (g *AccessGate) Verify(ctx context.Context, candidate string, record *models.Artifact, clientKey string) error {
	candidate = NormalizeCode(candidate)
	if candidate == "" {
		return ErrCodeRequired
	}

	key := record.Code + "|" + clientKey
	blocked, err := g.limiter.Blocked(ctx, key)
	if err != nil {
		// limiter outage must not lock viewers out
		log.WithError(err).Warn("[gate] attempt limiter unavailable")
	}
	if blocked {
		metrics.VerificationsTotal.WithLabelValues("blocked").Inc()
		return ErrTooManyAttempts
	}

	expected := strings.ToUpper(record.Code)
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(expected)) != 1 {
		if err := g.limiter.RecordFailure(ctx, key); err != nil {
			log.WithError(err).Warn("[gate] could not record failed attempt")
		}
		metrics.VerificationsTotal.WithLabelValues("invalid").Inc()
		return ErrInvalidCode
	}

	metrics.VerificationsTotal.WithLabelValues("ok").Inc()
	return nil
}
