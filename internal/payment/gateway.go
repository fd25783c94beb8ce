package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// EventCheckoutCompleted is the provider event emitted once a checkout finishes.
const EventCheckoutCompleted = "checkout.session.completed"

// CheckoutRequest describes a one-off hosted checkout.
type CheckoutRequest struct {
	Amount      decimal.Decimal
	Currency    string
	ProductName string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// CheckoutSession is the provider's view of a checkout.
type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus string
	Status        string
}

// WebhookEvent is a verified provider notification.
type WebhookEvent struct {
	Type string
	// Session is set for checkout session events only.
	Session *CheckoutSession
}

// Gateway is the payment provider as seen by the payment service.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
