package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"contentgen/internal/domain"
	"contentgen/internal/quota"
)

type generateRequest struct {
	Prompt      string `json:"prompt"`
	ContentType string `json:"contentType"`
}

type generateResponse struct {
	Content      string `json:"content"`
	WordCount    int    `json:"wordCount"`
	Remaining    int    `json:"remaining"`
	PostCount    int    `json:"postCount"`
	LimitReached bool   `json:"limitReached"`
}

// Generate runs one generation attempt for the request's caller. Anonymous
// callers are served while their free quota lasts; afterwards the attempt is
// refused before any upstream traffic.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	genReq := domain.GenerationRequest{Prompt: req.Prompt, ContentType: req.ContentType}
	if !genReq.Valid() {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt and contentType are required")
		return
	}

	caller := a.caller(r)
	out, err := a.Orchestrator.Attempt(r.Context(), caller, genReq)
	if err != nil {
		a.generateError(w, err)
		return
	}

	// Remaining only means something for anonymous callers; the outcome
	// leaves it zero on the authenticated path.
	a.json(w, http.StatusOK, generateResponse{
		Content:      out.Result.Text,
		WordCount:    out.Result.WordCount,
		Remaining:    out.Remaining,
		PostCount:    out.PostCount,
		LimitReached: out.LimitReached,
	})
}

func (a *App) generateError(w http.ResponseWriter, err error) {
	var remote *domain.RemoteError
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		msg := fmt.Sprintf("You've reached the limit of %d free generations. Please sign in to continue.", quota.MaxAnonymous)
		a.error(w, http.StatusForbidden, "quota_exceeded", msg)
	case errors.Is(err, domain.ErrNoCredential):
		a.error(w, http.StatusUnauthorized, "unauthorized", "credential unavailable")
	case errors.Is(err, domain.ErrMalformedResponse):
		a.error(w, http.StatusBadGateway, "upstream_error", err.Error())
	case errors.As(err, &remote):
		a.error(w, http.StatusBadGateway, "upstream_error", remote.Message)
	default:
		a.error(w, http.StatusBadGateway, "upstream_error", "Failed to generate content. Please try again.")
	}
}

type quotaResponse struct {
	Remaining int `json:"remaining"`
	Limit     int `json:"limit"`
}

// Quota reports the anonymous free-generation allowance.
func (a *App) Quota(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, quotaResponse{
		Remaining: a.Orchestrator.Remaining(r.Context()),
		Limit:     quota.MaxAnonymous,
	})
}
