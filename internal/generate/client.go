// Package generate holds the client for the remote generation service. The
// service exposes two distinct operations, one for authenticated callers and
// one for anonymous ones, because it applies different trust and rate policy
// to each.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"contentgen/internal/domain"
	"contentgen/internal/identity"
)

const (
	endpointAuthenticated = "/generate-content"
	endpointAnonymous     = "/generate-content-anonymous"
)

const defaultTimeout = 60 * time.Second

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// OnStatus observes every upstream response status and round-trip
	// latency, e.g. for metrics.
	OnStatus func(status int, elapsed time.Duration)
}

type Client struct {
	baseURL  string
	client   *http.Client
	onStatus func(status int, elapsed time.Duration)
}

type errorBody struct {
	Message string `json:"message"`
}

type generationResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("generation base url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, client: client, onStatus: opts.OnStatus}, nil
}

// Generate sends one generation request on behalf of caller and returns the
// generated text. The call is a single attempt with no retry; transport and
// status failures surface to the caller unchanged.
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest, caller identity.Caller) (*domain.GenerationResult, error) {
	endpoint := c.baseURL + endpointAnonymous
	var token string
	if caller.Authenticated() {
		endpoint = c.baseURL + endpointAuthenticated
		minted, err := caller.BearerToken(ctx)
		if err != nil {
			return nil, err
		}
		token = minted
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		return nil, fmt.Errorf("encode generation request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if c.onStatus != nil {
		c.onStatus(resp.StatusCode, time.Since(start))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body errorBody
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, domain.NewRemoteError(resp.StatusCode, body.Message)
	}

	var out generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.ErrMalformedResponse
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return nil, domain.ErrMalformedResponse
	}

	result := domain.NewGenerationResult(out.Choices[0].Message.Content)
	return &result, nil
}
