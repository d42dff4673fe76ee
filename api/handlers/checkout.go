package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/linesmerrill/activities-api/membership"
	"github.com/linesmerrill/activities-api/payments"
)

// Checkout opens payment sessions for priced activities
type Checkout struct {
	Engine   *membership.Engine
	Payments payments.Gateway
	BaseURL  string
}

// CreateCheckoutHandler opens a checkout session for the caller. Only
// participants of a priced activity may pay for it.
func (c Checkout) CreateCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	activityID := mux.Vars(r)["activity_id"]
	view, err := c.Engine.Get(r.Context(), userID, activityID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !view.Details.IsPaid() {
		writeError(w, r, &membership.Error{Kind: membership.ErrValidation, Code: membership.CodeValidation, Message: "activity is free"})
		return
	}
	if !view.Joined {
		writeError(w, r, &membership.Error{Kind: membership.ErrForbidden, Code: membership.CodeForbidden, Message: "only participants can pay for an activity"})
		return
	}

	activityURL := fmt.Sprintf("%s/activity/%s", c.BaseURL, activityID)
	checkout, err := c.Payments.CreateCheckout(r.Context(), payments.CheckoutRequest{
		ActivityID:    activityID,
		ActivityTitle: view.Details.Title,
		UserID:        userID,
		Amount:        view.Details.Price.Amount,
		Currency:      view.Details.Price.Currency,
		SuccessURL:    activityURL + "?checkout=success",
		CancelURL:     activityURL + "?checkout=cancelled",
	})
	if errors.Is(err, payments.ErrNotConfigured) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error(), "code": "NOT_CONFIGURED"})
		return
	}
	if err != nil {
		writeError(w, r, fmt.Errorf("failed to create checkout session: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, checkout)
}
