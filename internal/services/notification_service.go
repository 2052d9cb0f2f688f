package services

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/givehub/backend/internal/models"
)

// NotificationService delivers donor receipts and payout confirmations.
// Delivery is fire-and-forget: a notification failure is logged and
// swallowed, never propagated, so it can never roll back ledger state.
type NotificationService struct {
	webhookURL string // downstream notification relay; empty disables delivery
	client     *http.Client
}

func NewNotificationService(webhookURL string) *NotificationService {
	return &NotificationService{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (n *NotificationService) SendReceipt(donation *models.Donation, breakdown *FeeBreakdown) {
	payload := map[string]any{
		"type":        "donation_receipt",
		"donationId":  donation.ID,
		"campaignId":  donation.CampaignID,
		"amount":      donation.Amount,
		"netAmount":   breakdown.NetAmount,
		"currency":    donation.Currency,
		"completedAt": time.Now().Format(time.RFC3339),
	}
	n.deliver(payload)
	log.Printf("Notification: receipt sent for donation %s on campaign %s", donation.ID, donation.CampaignID)
}

func (n *NotificationService) SendPayoutConfirmation(payout *models.Payout) {
	payload := map[string]any{
		"type":       "payout_confirmation",
		"payoutId":   payout.ID,
		"campaignId": payout.CampaignID,
		"amount":     payout.Amount,
		"netAmount":  payout.NetAmount,
		"status":     payout.Status,
	}
	n.deliver(payload)
	log.Printf("Notification: payout confirmation sent for payout %s (%s)", payout.ID, payout.Status)
}

func (n *NotificationService) deliver(payload map[string]any) {
	if n.webhookURL == "" {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Notification delivery skipped, marshal failed: %v", err)
		return
	}

	resp, err := n.client.Post(n.webhookURL, "application/json", bytes.NewReader(data))
	if err != nil {
		log.Printf("Notification delivery failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("Notification relay returned status %d", resp.StatusCode)
	}
}
