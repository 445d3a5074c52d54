package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-github/v75/github"
	"github.com/rs/zerolog/log"
)

// PushEventHandler applies a validated push to the blog.
type PushEventHandler interface {
	HandlePushEvent(evt *github.PushEvent) error
}

type WebhookHandler struct {
	webhookSecret []byte
	pushes        PushEventHandler
}

func NewWebhookHandler(webhookSecret string, pushes PushEventHandler) *WebhookHandler {
	return &WebhookHandler{
		webhookSecret: []byte(webhookSecret),
		pushes:        pushes,
	}
}

func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook/git", h.HandleGitWebhook)
}

func (h *WebhookHandler) HandleGitWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, h.webhookSecret)
	if err != nil {
		log.Warn().Err(err).Str("remoteAddr", r.RemoteAddr).Msg("Rejected webhook payload")
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		http.Error(w, "Invalid event", http.StatusBadRequest)
		return
	}

	switch evt := event.(type) {
	case *github.PushEvent:
		err = h.pushes.HandlePushEvent(evt)
	default:
		log.Debug().Str("event", github.WebHookType(r)).Msg("Ignoring webhook event")
	}
	if err != nil {
		log.Error().Err(err).Str("delivery", github.DeliveryID(r)).Msg("Failed to handle push event")
		http.Error(w, "Error handling event", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
