package payments

import "github.com/google/uuid"

// InitiateRequest is the body of the capture-initiate call.
type InitiateRequest struct {
	SourceID string `json:"sourceId" validate:"omitempty,max=255"`
}

// ConfirmRequest is the body of the capture-confirm call.
type ConfirmRequest struct {
	IntentID string `json:"intentId" validate:"required,max=255"`
}

// IntentDTO is returned to the client to continue the provider's checkout.
type IntentDTO struct {
	OrderID      uuid.UUID `json:"orderId"`
	Provider     string    `json:"provider"`
	IntentID     string    `json:"intentId"`
	ClientSecret string    `json:"clientSecret,omitempty"`
}
