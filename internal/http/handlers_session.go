// Package httpx provides the local read-only HTTP views over the login session.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
	"github.com/ocfl-archive/clerk-login/internal/session"
)

const (
	eventBuffer       = 16
	keepAliveInterval = 15 * time.Second
)

// SessionHandlers serves the session state to views.
type SessionHandlers struct {
	Session *session.Context
	Logger  *slog.Logger
}

func (h *SessionHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// SessionResponse is the body of GET /api/session.
type SessionResponse struct {
	Authenticated bool                `json:"authenticated"`
	Profile       *domainauth.Profile `json:"profile"`
	Token         *string             `json:"token"`
	DisplayName   string              `json:"display_name,omitempty"`
}

// Get writes the current snapshot. Unset slots are null.
func (h *SessionHandlers) Get(w http.ResponseWriter, _ *http.Request) {
	snap := h.Session.Snapshot()
	resp := SessionResponse{Authenticated: snap.Authenticated()}
	if snap.HasProfile {
		p := snap.Profile
		resp.Profile = &p
		resp.DisplayName = p.DisplayName()
	}
	if snap.HasToken {
		tok := snap.Token
		resp.Token = &tok
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, resp)
}

type sessionEvent struct {
	name string
	data any
}

// Events streams every observation of the profile and token slots as server-sent events,
// starting with the current one.
func (h *SessionHandlers) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "streaming_unsupported",
			Err:     errors.New("response writer does not support flushing"),
		})
		return
	}

	ctx := r.Context()
	events := make(chan sessionEvent, eventBuffer)
	push := func(ev sessionEvent) {
		select {
		case events <- ev:
		default:
			h.logger().WarnContext(ctx, "dropping session event for slow client", "event", ev.name)
		}
	}

	unsubProfile := h.Session.ProfileView().Subscribe(func(p domainauth.Profile, set bool) {
		if !set {
			push(sessionEvent{name: "profile"})
			return
		}
		push(sessionEvent{name: "profile", data: p})
	})
	defer unsubProfile()
	unsubToken := h.Session.TokenView().Subscribe(func(tok string, set bool) {
		if !set {
			push(sessionEvent{name: "token"})
			return
		}
		push(sessionEvent{name: "token", data: tok})
	})
	defer unsubToken()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev := <-events:
			if err := writeEvent(w, ev); err != nil {
				h.logger().DebugContext(ctx, "session event write failed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev sessionEvent) error {
	data, err := json.Marshal(ev.data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.name, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, data)
	return err
}
