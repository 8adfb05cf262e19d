package httpx

import (
	"log/slog"
	"net/http"

	"github.com/ocfl-archive/clerk-login/internal/session"
)

// RouterServices holds what the HTTP router needs.
type RouterServices struct {
	Session *session.Context
	Logger  *slog.Logger // Optional
}

// NewRouter creates the read-only session router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sessionHandlers := &SessionHandlers{Session: services.Session, Logger: logger}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", healthHandler(services.Session))
	mux.HandleFunc("GET /api/session", sessionHandlers.Get)
	mux.HandleFunc("GET /api/session/events", sessionHandlers.Events)

	return Recover(logger)(Logging(logger)(mux))
}
