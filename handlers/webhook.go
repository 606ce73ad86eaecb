package handlers

import (
	"errors"
	"net/http"

	"github.com/cineverse/cineverse/backend/go-services/internal/webhook"
	"github.com/cineverse/cineverse/backend/go-services/pkg/logger"
	"github.com/cineverse/cineverse/backend/go-services/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// Provider-defined signature header names. Opaque strings as far as the
// verifier is concerned.
const (
	headerMessageID = "svix-id"
	headerTimestamp = "svix-timestamp"
	headerSignature = "svix-signature"
)

// WebhookHandler terminates the provider's identity webhook: signature
// verification, event decoding, then synchronization against the user store.
type WebhookHandler struct {
	verifier *webhook.Verifier
	sync     *webhook.Synchronizer
}

func NewWebhookHandler(v *webhook.Verifier, s *webhook.Synchronizer) *WebhookHandler {
	return &WebhookHandler{verifier: v, sync: s}
}

// Register routes under /api/webhooks
func (h *WebhookHandler) Register(rg *gin.RouterGroup) {
	w := rg.Group("/api/webhooks")
	w.POST("/clerk", h.Handle)
}

// Handle processes one inbound delivery to a terminal outcome. Verification
// runs before anything else touches the payload; internal error detail stays
// in the logs and never reaches the response body.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		logger.Errorf("webhook: failed to read request body: %v", err)
		metrics.WebhookEvents.WithLabelValues("unverified", "rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error occurred"})
		return
	}

	msgID := c.GetHeader(headerMessageID)
	timestamp := c.GetHeader(headerTimestamp)
	signature := c.GetHeader(headerSignature)

	if err := h.verifier.Verify(body, msgID, timestamp, signature); err != nil {
		metrics.WebhookEvents.WithLabelValues("unverified", "rejected").Inc()
		if errors.Is(err, webhook.ErrMissingHeaders) {
			logger.Warnf("webhook: delivery without signature headers (id=%q)", msgID)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Error occurred -- no svix headers"})
			return
		}
		logger.Warnf("webhook: verification failed for message %s: %v", msgID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error occurred"})
		return
	}

	ev, err := webhook.Decode(body)
	if err != nil {
		logger.Errorf("webhook: decode failed for message %s: %v", msgID, err)
		metrics.WebhookEvents.WithLabelValues("malformed", "rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}

	user, err := h.sync.Apply(c.Request.Context(), ev)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(string(ev.Kind), "failed").Inc()
		// full detail was logged at the synchronizer boundary; the caller
		// only gets an opaque message
		c.JSON(http.StatusInternalServerError, gin.H{"error": failureMessage(ev.Kind)})
		return
	}

	if user == nil {
		// unrecognized event type: acknowledged so the provider stops retrying
		metrics.WebhookEvents.WithLabelValues(string(ev.Kind), "acknowledged").Inc()
		logger.Infof("webhook: message %s with type %s acknowledged without action", msgID, ev.Kind)
		c.JSON(http.StatusOK, gin.H{"message": "OK"})
		return
	}

	metrics.WebhookEvents.WithLabelValues(string(ev.Kind), "applied").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "OK", "user": user})
}

func failureMessage(k webhook.Kind) string {
	switch k {
	case webhook.KindUserCreated:
		return "Failed to create user"
	case webhook.KindUserUpdated:
		return "Failed to update user"
	case webhook.KindUserDeleted:
		return "Failed to delete user"
	}
	return "Failed to process event"
}
