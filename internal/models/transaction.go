package models

import (
	"time"
)

// Transaction types
const (
	TransactionTypeDonation    = "DONATION"
	TransactionTypePayout      = "PAYOUT"
	TransactionTypeRefund      = "REFUND"
	TransactionTypeChargeback  = "CHARGEBACK"
	TransactionTypePlatformFee = "PLATFORM_FEE"
)

// Transaction statuses
const (
	TransactionStatusCompleted  = "COMPLETED"
	TransactionStatusProcessing = "PROCESSING"
	TransactionStatusFailed     = "FAILED"
)

// Transaction is the immutable audit record of every balance-affecting
// event on a campaign. Rows are append-only; the only permitted mutation
// is the status transition on payout-linked entries as the external
// transfer resolves. Exactly one of DonationID / PayoutID is set, linking
// the entry to its originating event. Amounts are in minor currency units.
type Transaction struct {
	ID            int       `json:"id" db:"id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	CampaignID    string    `json:"campaign_id" db:"campaign_id"`
	DonationID    string    `json:"donation_id,omitempty" db:"donation_id"`
	PayoutID      string    `json:"payout_id,omitempty" db:"payout_id"`
	Type          string    `json:"type" db:"type"`
	Amount        int64     `json:"amount" db:"amount"` // gross, in cents
	PlatformFee   int64     `json:"platform_fee" db:"platform_fee"`
	ProcessingFee int64     `json:"processing_fee" db:"processing_fee"`
	NetAmount     int64     `json:"net_amount" db:"net_amount"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
