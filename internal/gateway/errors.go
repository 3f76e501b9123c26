package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"agrisa-ops/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

var domainErrors = []error{
	models.ErrInvalidParameter,
	models.ErrInvalidState,
	models.ErrInvalidReference,
	models.ErrNotFound,
	models.ErrUnavailable,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// breakerSuccess reports whether err should not count against a circuit
// breaker. Caller mistakes and cancellations say nothing about the health
// of the store; unavailability does.
func breakerSuccess(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, models.ErrUnavailable):
		return false
	case errors.Is(err, context.Canceled):
		return true
	default:
		return isDomainError(err)
	}
}

// normalize maps infrastructure failures onto the error taxonomy. Missing
// rows become ErrNotFound; everything else unclassified is ErrUnavailable.
func normalize(err error) error {
	switch {
	case err == nil:
		return nil
	case isDomainError(err):
		return err
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, redis.Nil):
		return fmt.Errorf("%w: %w", models.ErrNotFound, err)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: gateway circuit open: %w", models.ErrUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", models.ErrUnavailable, err)
	}
}
