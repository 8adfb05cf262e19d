package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
	"github.com/ocfl-archive/clerk-login/internal/session"
	"github.com/ocfl-archive/clerk-login/internal/testutil"
)

var adaProfile = domainauth.Profile{ID: "u1", Username: "ada", FirstName: "Ada", LastName: "Lovelace"}

func newTestRouter(t *testing.T) (*session.Context, *httptest.Server) {
	t.Helper()
	sess := session.NewContext()
	logger, _ := testutil.NewLogRecorder()
	srv := httptest.NewServer(NewRouter(RouterServices{Session: sess, Logger: logger}))
	t.Cleanup(srv.Close)
	return sess, srv
}

func getSession(t *testing.T, url string) map[string]any {
	t.Helper()
	resp, err := http.Get(url + "/api/session")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestSessionHandlers_Get(t *testing.T) {
	sess, srv := newTestRouter(t)

	body := getSession(t, srv.URL)
	assert.Equal(t, false, body["authenticated"])
	assert.Nil(t, body["profile"])
	assert.Nil(t, body["token"])

	sess.Publish(adaProfile, "access-token")

	body = getSession(t, srv.URL)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "access-token", body["token"])
	assert.Equal(t, "Ada Lovelace", body["display_name"])
	profile, ok := body["profile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ada", profile["username"])
}

type sseEvent struct {
	name string
	data string
}

func readEvents(t *testing.T, sc *bufio.Scanner, n int) []sseEvent {
	t.Helper()
	var (
		out []sseEvent
		cur sseEvent
	)
	for len(out) < n && sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "" && cur.name != "":
			out = append(out, cur)
			cur = sseEvent{}
		}
	}
	require.NoError(t, sc.Err())
	require.Len(t, out, n)
	return out
}

func TestSessionHandlers_Events(t *testing.T) {
	sess, srv := newTestRouter(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/session/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	initial := readEvents(t, sc, 2)
	assert.ElementsMatch(t, []sseEvent{{"profile", "null"}, {"token", "null"}}, initial)

	sess.Publish(adaProfile, "access-token")

	published := readEvents(t, sc, 2)
	assert.Equal(t, "profile", published[0].name)
	var p domainauth.Profile
	require.NoError(t, json.Unmarshal([]byte(published[0].data), &p))
	assert.Equal(t, adaProfile, p)
	assert.Equal(t, sseEvent{"token", `"access-token"`}, published[1])
}

func TestSessionHandlers_EventsWithoutFlusher(t *testing.T) {
	h := &SessionHandlers{Session: session.NewContext()}
	w := &nonFlushingWriter{header: http.Header{}}

	h.Events(w, httptest.NewRequest(http.MethodGet, "/api/session/events", nil))

	assert.Equal(t, http.StatusInternalServerError, w.status)
	assert.Contains(t, w.body.String(), "streaming_unsupported")
}

type nonFlushingWriter struct {
	header http.Header
	status int
	body   strings.Builder
}

func (w *nonFlushingWriter) Header() http.Header         { return w.header }
func (w *nonFlushingWriter) WriteHeader(status int)      { w.status = status }
func (w *nonFlushingWriter) Write(b []byte) (int, error) { return w.body.Write(b) }
