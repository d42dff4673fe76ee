package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func TestStripeCreateCheckout(t *testing.T) {
	var got *stripe.CheckoutSessionParams
	s := &Stripe{newSession: func(p *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		got = p
		return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/cs_test_1"}, nil
	}}

	checkout, err := s.CreateCheckout(context.Background(), CheckoutRequest{
		ActivityID:    "a1",
		ActivityTitle: "Pottery class",
		UserID:        "u1",
		Amount:        2500,
		Currency:      "usd",
		SuccessURL:    "https://activities.app/activity/a1?paid=1",
		CancelURL:     "https://activities.app/activity/a1",
	})
	require.NoError(t, err)
	assert.Equal(t, &Checkout{SessionID: "cs_test_1", URL: "https://checkout.stripe.com/c/cs_test_1"}, checkout)

	require.NotNil(t, got)
	assert.Equal(t, "payment", *got.Mode)
	assert.Equal(t, "u1:a1", *got.ClientReferenceID)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, int64(2500), *got.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "Pottery class", *got.LineItems[0].PriceData.ProductData.Name)
}

func TestStripeCreateCheckoutError(t *testing.T) {
	s := &Stripe{newSession: func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return nil, errors.New("card_declined")
	}}
	_, err := s.CreateCheckout(context.Background(), CheckoutRequest{})
	assert.EqualError(t, err, "failed to create checkout session: card_declined")
}

func TestStripeNotConfigured(t *testing.T) {
	_, err := NewStripe("").CreateCheckout(context.Background(), CheckoutRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
