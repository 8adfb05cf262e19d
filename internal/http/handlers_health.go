package httpx

import (
	"io"
	"net/http"

	"github.com/ocfl-archive/clerk-login/internal/session"
)

const (
	healthReady   = `{"status":"ok","session":"ready"}`
	healthPending = `{"status":"ok","session":"pending"}`
)

// healthHandler always answers 200; the body tells whether the bootstrap has published yet.
func healthHandler(sess *session.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		body := healthPending
		if sess.Snapshot().Authenticated() {
			body = healthReady
		}
		if _, err := io.WriteString(w, body); err != nil {
			// Nothing more to do if the client connection is gone.
			return
		}
	}
}
