package handlers

import (
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/givehub/backend/internal/processor"
	"github.com/givehub/backend/internal/services"
	"github.com/go-redis/redis/v8"
)

// webhookDedupeTTL bounds how long processed event ids are remembered.
// Stripe retries for up to three days; keep a margin on top.
const webhookDedupeTTL = 96 * time.Hour

// WebhookHandler receives provider callbacks, verifies their signature,
// dedupes them by event id, and routes them to the payout or donation
// flow. Handlers downstream are idempotent anyway; the redis dedupe just
// keeps retried deliveries from doing redundant database work.
type WebhookHandler struct {
	processor processor.PaymentProcessor
	payouts   *services.PayoutService
	donations *services.DonationService
	redis     *redis.Client
}

func NewWebhookHandler(proc processor.PaymentProcessor, payouts *services.PayoutService, donations *services.DonationService, rdb *redis.Client) *WebhookHandler {
	return &WebhookHandler{
		processor: proc,
		payouts:   payouts,
		donations: donations,
		redis:     rdb,
	}
}

// HandleStripeWebhook processes Stripe event notifications
// @Summary Stripe webhook endpoint
// @Description Receive transfer and payment events from Stripe
// @Tags webhooks
// @Accept json
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /webhooks/stripe [post]
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 65536)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	event, err := h.processor.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		log.Printf("[WEBHOOK] Signature verification failed: %v", err)
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	if h.alreadyProcessed(r, event.ID) {
		log.Printf("[WEBHOOK] Duplicate event %s, skipping", event.ID)
		w.WriteHeader(http.StatusOK)
		return
	}

	log.Printf("[WEBHOOK] Processing event %s type=%s", event.ID, event.Type)

	switch {
	case strings.HasPrefix(event.Type, "transfer."):
		err = h.payouts.HandleTransferEvent(event)
	case strings.HasPrefix(event.Type, "payment_intent."):
		err = h.donations.HandlePaymentEvent(event)
	default:
		log.Printf("[WEBHOOK] Unhandled event type %s, acknowledging", event.Type)
	}

	if err != nil {
		// Non-2xx makes the provider retry; the dedupe key was only set on
		// success so the retry will be processed.
		log.Printf("[WEBHOOK] Failed to process event %s: %v", event.ID, err)
		http.Error(w, "Failed to process event", http.StatusInternalServerError)
		return
	}

	h.markProcessed(r, event.ID)
	w.WriteHeader(http.StatusOK)
}

// alreadyProcessed reports whether this event id was seen before. With no
// redis available every event is treated as new; the ledger's own
// idempotency keeps that safe.
func (h *WebhookHandler) alreadyProcessed(r *http.Request, eventID string) bool {
	if h.redis == nil || eventID == "" {
		return false
	}
	exists, err := h.redis.Exists(r.Context(), "webhook:event:"+eventID).Result()
	if err != nil {
		log.Printf("[WEBHOOK] Redis dedupe check failed: %v", err)
		return false
	}
	return exists > 0
}

func (h *WebhookHandler) markProcessed(r *http.Request, eventID string) {
	if h.redis == nil || eventID == "" {
		return
	}
	if err := h.redis.Set(r.Context(), "webhook:event:"+eventID, "1", webhookDedupeTTL).Err(); err != nil {
		log.Printf("[WEBHOOK] Failed to record processed event %s: %v", eventID, err)
	}
}
