package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-github/v75/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cret"

type recordingPushHandler struct {
	events []*github.PushEvent
	err    error
}

func (r *recordingPushHandler) HandlePushEvent(evt *github.PushEvent) error {
	r.events = append(r.events, evt)
	return r.err
}

func sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(payload))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newWebhookRequest(event, payload, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook/git", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-GitHub-Delivery", "delivery-1")
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	return req
}

func newTestRouter(pushes PushEventHandler) chi.Router {
	r := chi.NewRouter()
	NewWebhookHandler(testSecret, pushes).RegisterRoutes(r)
	return r
}

func TestHandleGitWebhook_Push(t *testing.T) {
	pushes := &recordingPushHandler{}
	r := newTestRouter(pushes)
	payload := `{"ref":"refs/heads/main","before":"aaa","after":"bbb"}`

	w := httptest.NewRecorder()
	r.ServeHTTP(w, newWebhookRequest("push", payload, sign(payload)))

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, pushes.events, 1)
	assert.Equal(t, "refs/heads/main", pushes.events[0].GetRef())
	assert.Equal(t, "bbb", pushes.events[0].GetAfter())
}

func TestHandleGitWebhook_InvalidSignature(t *testing.T) {
	pushes := &recordingPushHandler{}
	r := newTestRouter(pushes)
	payload := `{"ref":"refs/heads/main"}`

	for _, signature := range []string{"", "sha256=deadbeef", sign(payload + " ")} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, newWebhookRequest("push", payload, signature))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	assert.Empty(t, pushes.events)
}

func TestHandleGitWebhook_OtherEventsAreIgnored(t *testing.T) {
	pushes := &recordingPushHandler{}
	r := newTestRouter(pushes)
	payload := `{"zen":"Keep it logically awesome."}`

	w := httptest.NewRecorder()
	r.ServeHTTP(w, newWebhookRequest("ping", payload, sign(payload)))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, pushes.events)
}

func TestHandleGitWebhook_UnknownEventType(t *testing.T) {
	r := newTestRouter(&recordingPushHandler{})
	payload := `{}`

	w := httptest.NewRecorder()
	r.ServeHTTP(w, newWebhookRequest("not-an-event", payload, sign(payload)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGitWebhook_HandlerError(t *testing.T) {
	r := newTestRouter(&recordingPushHandler{err: errors.New("github unavailable")})
	payload := `{"ref":"refs/heads/main"}`

	w := httptest.NewRecorder()
	r.ServeHTTP(w, newWebhookRequest("push", payload, sign(payload)))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "github unavailable")
}
