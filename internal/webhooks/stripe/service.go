package stripewebhook

import (
	"context"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// DefaultScope namespaces Stripe event ids in the idempotency store.
const DefaultScope = "stripe_webhook"

type eventVerifier interface {
	VerifyWebhook(payload []byte, signature string) (*payments.WebhookEvent, error)
}

type paymentApplier interface {
	ApplyWebhookEvent(ctx context.Context, event *payments.WebhookEvent) (bool, error)
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type ServiceParams struct {
	Verifier eventVerifier
	Payments paymentApplier
	Guard    eventGuard
	Logger   *logger.Logger
}

type Service struct {
	verifier eventVerifier
	payments paymentApplier
	guard    eventGuard
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook verifier required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment service required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		verifier: params.Verifier,
		payments: params.Payments,
		guard:    params.Guard,
		logg:     logg,
	}, nil
}

// HandleEvent verifies a raw Stripe delivery and applies it at most once per
// event id. Any error leaves the event unclaimed so Stripe's retry can
// succeed later. Without a guard, duplicates still stop at the order's
// already-paid check.
func (s *Service) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := s.verifier.VerifyWebhook(payload, signature)
	if err != nil {
		s.logg.Warn(ctx, "stripe.webhook_rejected")
		return err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": event.Type})

	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
		}
		if seen {
			s.logg.Info(ctx, "stripe.webhook_replayed")
			return nil
		}
	}

	applied, err := s.payments.ApplyWebhookEvent(ctx, event)
	if err != nil {
		if s.guard != nil {
			if delErr := s.guard.Delete(ctx, event.ID); delErr != nil {
				s.logg.Error(ctx, "stripe.webhook_guard_release_failed", delErr)
			}
		}
		return err
	}

	s.logg.Info(s.logg.WithField(ctx, "applied", applied), "stripe.webhook_processed")
	return nil
}
