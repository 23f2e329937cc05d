// Package payment implements the mobile-money charge flow: one call to start
// a charge and a background poller that confirms or abandons it.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"contentgen/internal/domain"
	"contentgen/internal/identity"
)

const endpointInitiate = "/initiate-mpesa-payment"

const initiateTimeout = 30 * time.Second

type initiateRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	UserID      string `json:"userId"`
}

type initiateResponse struct {
	CheckoutRequestID string `json:"checkoutRequestId"`
	Message           string `json:"message"`
}

// Initiator submits a charge for an authenticated principal and returns the
// gateway's correlation id. Confirmation is the poller's job from then on.
type Initiator struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

func NewInitiator(baseURL string, client *http.Client, logger zerolog.Logger) (*Initiator, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("payment base url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: initiateTimeout}
	}
	return &Initiator{baseURL: baseURL, client: client, logger: logger}, nil
}

// Initiate sends one authenticated charge request. Network failures, rejected
// charges, and responses without a correlation id all surface as
// PaymentInitError.
func (i *Initiator) Initiate(ctx context.Context, caller identity.Caller, phoneNumber string) (string, error) {
	if !caller.Authenticated() {
		return "", domain.ErrNoCredential
	}
	token, err := caller.BearerToken(ctx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	payload := initiateRequest{PhoneNumber: phoneNumber, UserID: caller.Principal.ID}
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", &domain.PaymentInitError{Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+endpointInitiate, &buf)
	if err != nil {
		return "", &domain.PaymentInitError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := i.client.Do(httpReq)
	if err != nil {
		return "", &domain.PaymentInitError{Err: fmt.Errorf("initiate payment: %w", err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var body initiateResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.PaymentInitError{
			Message: body.Message,
			Err:     domain.NewRemoteError(resp.StatusCode, body.Message),
		}
	}
	if decodeErr != nil || body.CheckoutRequestID == "" {
		return "", &domain.PaymentInitError{Err: errors.New("response missing checkout request id")}
	}

	i.logger.Info().Str("checkout_request_id", body.CheckoutRequestID).Msg("payment: charge initiated")
	return body.CheckoutRequestID, nil
}
