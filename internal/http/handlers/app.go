package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"contentgen/internal/content"
	"contentgen/internal/identity"
	"contentgen/internal/middleware"
	"contentgen/internal/payment"
)

// App is the handler container, wired once at startup.
type App struct {
	Orchestrator *content.Orchestrator
	Payments     *payment.Manager
	Logger       zerolog.Logger
}

func NewApp(orch *content.Orchestrator, payments *payment.Manager, logger zerolog.Logger) *App {
	return &App{Orchestrator: orch, Payments: payments, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{"error": errCode, "message": message})
}

func (a *App) caller(r *http.Request) identity.Caller {
	return middleware.CallerFromContext(r.Context())
}
