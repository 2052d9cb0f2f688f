package services

import (
	"encoding/json"
	"log"
	"time"
)

type AuditEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id,omitempty"`
	CampaignID    string    `json:"campaign_id"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	Details       any       `json:"details"`
}

// AuditLogger emits one structured line per balance-affecting ledger
// event. Output goes to the standard logger; log shipping picks it up by
// the AUDIT prefix.
type AuditLogger struct{}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{}
}

func (a *AuditLogger) LogCredit(transactionID, campaignID, donationID string, breakdown *FeeBreakdown) {
	a.log(AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "CREDIT",
		TransactionID: transactionID,
		CampaignID:    campaignID,
		Amount:        breakdown.Amount,
		Status:        "SUCCESS",
		Details: map[string]any{
			"donation_id":    donationID,
			"platform_fee":   breakdown.PlatformFee,
			"processing_fee": breakdown.ProcessingFee,
			"net_amount":     breakdown.NetAmount,
		},
	})
}

func (a *AuditLogger) LogReserve(transactionID, campaignID, payoutID string, amount int64) {
	a.log(AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "RESERVE",
		TransactionID: transactionID,
		CampaignID:    campaignID,
		Amount:        amount,
		Status:        "SUCCESS",
		Details:       map[string]string{"payout_id": payoutID},
	})
}

func (a *AuditLogger) LogReverse(campaignID, payoutID string, amount int64, reason string) {
	a.log(AuditEvent{
		Timestamp:  time.Now(),
		EventType:  "REVERSE",
		CampaignID: campaignID,
		Amount:     amount,
		Status:     "SUCCESS",
		Details: map[string]string{
			"payout_id": payoutID,
			"reason":    reason,
		},
	})
}

func (a *AuditLogger) LogFinalize(campaignID, payoutID string, netAmount int64) {
	a.log(AuditEvent{
		Timestamp:  time.Now(),
		EventType:  "FINALIZE",
		CampaignID: campaignID,
		Amount:     netAmount,
		Status:     "SUCCESS",
		Details:    map[string]string{"payout_id": payoutID},
	})
}

func (a *AuditLogger) LogError(campaignID, reference string, err error) {
	a.log(AuditEvent{
		Timestamp:  time.Now(),
		EventType:  "ERROR",
		CampaignID: campaignID,
		Status:     "FAILED",
		Details: map[string]string{
			"reference": reference,
			"error":     err.Error(),
		},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
