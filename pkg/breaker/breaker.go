package breaker

import (
	"context"
	"errors"
	"time"

	"novelchat/apperrors"
	"novelchat/pkg/logger"

	"github.com/sony/gobreaker"
)

// Config allows custom settings for specific breakers
type Config struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	Threshold   float64 // failure ratio that trips the breaker
	MinRequests uint32

	// IsSuccessful decides which errors count against the breaker. nil counts every error.
	IsSuccessful func(err error) bool
}

// New creates a new CircuitBreaker with sensible defaults
func New(cfg Config) *gobreaker.CircuitBreaker {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 5 // Half-open max requests
	}
	if cfg.Interval == 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = 0.5
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 5
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.Threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithComponent("breaker").Info("circuit breaker '%s' changed state from %s to %s", name, from.String(), to.String())
		},
		IsSuccessful: cfg.IsSuccessful,
	}

	return gobreaker.NewCircuitBreaker(settings)
}

// ExecuteCtx runs fn through cb unless ctx is already done. An open breaker
// is reported as a SERVICE_UNAVAILABLE AppError.
func ExecuteCtx(ctx context.Context, cb *gobreaker.CircuitBreaker, fn func() (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperrors.NewCircuitBreakerError(cb.Name(), cb.State().String()).WithInternal(err)
	}
	return result, err
}
