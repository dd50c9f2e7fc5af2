package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// breakerGateway fails fast while a provider keeps erroring. Calls are never
// retried here; the buyer decides whether to try again.
type breakerGateway struct {
	next CaptureGateway
	cb   *gobreaker.CircuitBreaker[any]
}

// WithBreaker wraps a capture gateway in a circuit breaker. Caller-side
// failures (validation, not found) do not count against the provider.
func WithBreaker(next CaptureGateway, cfg config.BreakerConfig, logg *logger.Logger) CaptureGateway {
	if logg == nil {
		logg = logger.Nop()
	}
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        next.Provider(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				pkgerrors.IsCode(err, pkgerrors.CodeValidation) ||
				pkgerrors.IsCode(err, pkgerrors.CodeNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ctx := logg.WithFields(context.Background(), map[string]any{
				"provider": name,
				"from":     from.String(),
				"to":       to.String(),
			})
			logg.Warn(ctx, "gateway.breaker_state_changed")
		},
	}
	return &breakerGateway{next: next, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (b *breakerGateway) Provider() string { return b.next.Provider() }

func (b *breakerGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.next.CreateIntent(ctx, req)
	})
	if err != nil {
		return nil, b.mapErr(err)
	}
	return out.(*Intent), nil
}

func (b *breakerGateway) CaptureAndVerify(ctx context.Context, intentID string) (*CaptureResult, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.next.CaptureAndVerify(ctx, intentID)
	})
	if err != nil {
		return nil, b.mapErr(err)
	}
	return out.(*CaptureResult), nil
}

func (b *breakerGateway) mapErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return pkgerrors.Wrap(pkgerrors.CodeExternalGateway, err, fmt.Sprintf("%s temporarily unavailable", b.next.Provider()))
	}
	return err
}
