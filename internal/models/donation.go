package models

import (
	"time"
)

// Donation statuses
const (
	DonationStatusPending   = "PENDING"
	DonationStatusCompleted = "COMPLETED"
	DonationStatusFailed    = "FAILED"
)

// Donation represents a single contribution to a campaign. Amount is the
// gross charge in minor currency units; the fee split lives on the ledger
// Transaction created when the donation completes.
type Donation struct {
	ID         string    `json:"id" db:"id"`
	CampaignID string    `json:"campaign_id" db:"campaign_id"`
	DonorID    int       `json:"donor_id" db:"donor_id"`
	Amount     int64     `json:"amount" db:"amount"`
	Currency   string    `json:"currency" db:"currency"`
	Message    string    `json:"message,omitempty" db:"message"`
	Anonymous  bool      `json:"anonymous" db:"anonymous"`
	PaymentRef string    `json:"payment_ref,omitempty" db:"payment_ref"` // processor confirmation id
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
