package chatbot

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// processTimeout bounds the asynchronous half of an update: domain work plus
// reply delivery.
const processTimeout = 30 * time.Second

// Webhook receives channel updates over HTTP.  The channel protocol requires
// every update to be acknowledged promptly, so the handler writes its 200
// before any domain logic runs and processes the update in the background.
// The channel gives no ordering guarantee between the acknowledgment and the
// eventual reply, and nothing here relies on one.
type Webhook struct {
	router *Router
	sender ReplySender
	logger *log.Logger
}

func NewWebhook(router *Router, sender ReplySender, logger *log.Logger) *Webhook {
	return &Webhook{router: router, sender: sender, logger: logger}
}

func (h *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var u Update
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&u); err != nil || u.ChannelID == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false}`))
		return
	}

	// Acknowledge before doing any work.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))

	// The request context dies with this handler; the background work gets
	// its own deadline.
	go h.process(u)
}

func (h *Webhook) process(u Update) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	reply := h.router.Handle(ctx, u)
	if err := h.sender.Send(ctx, reply); err != nil {
		h.logger.Printf("deliver reply to %s: %v", u.ChannelID, err)
	}
}
