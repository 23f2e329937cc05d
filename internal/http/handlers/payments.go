package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"contentgen/internal/domain"
)

type initiatePaymentRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type paymentResponse struct {
	CheckoutRequestID string `json:"checkoutRequestId"`
	PhoneNumber       string `json:"phoneNumber"`
	Status            string `json:"status"`
}

// InitiatePayment starts an M-Pesa charge for the authenticated caller and a
// background confirmation poll. The response is accepted, not settled: the
// client follows up on the status endpoint.
func (a *App) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	session, err := a.Payments.Begin(r.Context(), a.caller(r), req.PhoneNumber)
	if err != nil {
		a.paymentError(w, err)
		return
	}

	snap := session.Snapshot()
	a.json(w, http.StatusAccepted, paymentResponse{
		CheckoutRequestID: snap.CorrelationID,
		PhoneNumber:       snap.PhoneNumber,
		Status:            string(snap.Status),
	})
}

func (a *App) paymentError(w http.ResponseWriter, err error) {
	var initErr *domain.PaymentInitError
	switch {
	case errors.Is(err, domain.ErrNoCredential):
		a.error(w, http.StatusUnauthorized, "unauthorized", "sign in to subscribe")
	case errors.Is(err, domain.ErrPaymentInProgress):
		a.error(w, http.StatusConflict, "payment_in_progress", "a payment is already being confirmed for this account")
	case errors.As(err, &initErr):
		a.error(w, http.StatusBadGateway, "payment_failed", initErr.Error())
	default:
		a.error(w, http.StatusBadGateway, "payment_failed", "Payment failed")
	}
}

type paymentStatusResponse struct {
	CheckoutRequestID string `json:"checkoutRequestId"`
	Status            string `json:"status"`
	Error             string `json:"error,omitempty"`
}

// PaymentStatus reports the state of one confirmation session.
func (a *App) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, ok := a.Payments.Get(id)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "unknown checkout request id")
		return
	}

	out := paymentStatusResponse{
		CheckoutRequestID: session.CorrelationID(),
		Status:            string(session.Status()),
	}
	if err := session.Err(); err != nil {
		out.Error = err.Error()
	}
	a.json(w, http.StatusOK, out)
}

// CancelPayment tears a pending confirmation down. Cancelling a session that
// already reached a terminal state is a no-op.
func (a *App) CancelPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !a.Payments.Cancel(id) {
		a.error(w, http.StatusNotFound, "not_found", "unknown checkout request id")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
