package payment

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"classifieds/internal/errors"
)

const providerName = "stripe"

// StripeGateway implements Gateway with Stripe Checkout.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

var _ Gateway = (*StripeGateway)(nil)

// NewStripeGateway creates a Stripe gateway. Passing nil backends uses the
// public Stripe API.
func NewStripeGateway(apiKey, webhookSecret string, backends *stripe.Backends) *StripeGateway {
	return &StripeGateway{
		api:           client.New(apiKey, backends),
		webhookSecret: webhookSecret,
	}
}

// CreateCheckoutSession opens a payment-mode checkout with a single line item.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(req.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ProductName),
					},
					UnitAmount: stripe.Int64(req.Amount.Shift(2).IntPart()),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	cs, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, upstream(err)
	}
	return toCheckoutSession(cs), nil
}

// GetCheckoutSession fetches the current state of a checkout.
func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, upstream(err)
	}
	return toCheckoutSession(cs), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, errors.NewUpstreamError(providerName, err)
	}

	out := &WebhookEvent{Type: string(event.Type)}
	if event.Data == nil || !strings.HasPrefix(out.Type, "checkout.session.") {
		return out, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, errors.NewUpstreamError(providerName, fmt.Errorf("decode checkout session: %w", err))
	}
	out.Session = toCheckoutSession(&cs)
	return out, nil
}

func toCheckoutSession(cs *stripe.CheckoutSession) *CheckoutSession {
	return &CheckoutSession{
		ID:            cs.ID,
		URL:           cs.URL,
		PaymentStatus: string(cs.PaymentStatus),
		Status:        string(cs.Status),
	}
}

// upstream surfaces Stripe's human readable message instead of the JSON dump
// stripe.Error produces.
func upstream(err error) error {
	var se *stripe.Error
	if stderrors.As(err, &se) && se.Msg != "" {
		return errors.NewUpstreamError(providerName, stderrors.New(se.Msg))
	}
	return errors.NewUpstreamError(providerName, err)
}
