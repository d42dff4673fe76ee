// Package payments opens hosted checkout sessions for priced activities.
// Settlement happens at the gateway and is not tracked here.
package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// ErrNotConfigured is returned when no gateway key was provided
var ErrNotConfigured = errors.New("payments are not configured")

// CheckoutRequest describes one participant paying for one activity
type CheckoutRequest struct {
	ActivityID    string
	ActivityTitle string
	UserID        string
	// Amount is in the currency's minor unit
	Amount     int64
	Currency   string
	SuccessURL string
	CancelURL  string
}

// Checkout is an opened gateway session the client is redirected to
type Checkout struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// Gateway opens checkout sessions
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
}

// Stripe is the stripe Gateway
type Stripe struct {
	newSession func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewStripe sets the stripe key. An empty key gives a gateway that always
// returns ErrNotConfigured.
func NewStripe(secretKey string) *Stripe {
	if secretKey == "" {
		return &Stripe{}
	}
	stripe.Key = secretKey
	return &Stripe{newSession: session.New}
}

// CreateCheckout implements Gateway
func (s *Stripe) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if s.newSession == nil {
		return nil, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.UserID + ":" + req.ActivityID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ActivityTitle),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	sess, err := s.newSession(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &Checkout{SessionID: sess.ID, URL: sess.URL}, nil
}
