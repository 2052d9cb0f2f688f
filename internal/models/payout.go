package models

import (
	"time"
)

// Payout statuses
const (
	PayoutStatusPending    = "PENDING"
	PayoutStatusApproved   = "APPROVED"
	PayoutStatusProcessing = "PROCESSING"
	PayoutStatusCompleted  = "COMPLETED"
	PayoutStatusFailed     = "FAILED"
)

// Payout methods
const (
	PayoutMethodStripeConnect = "STRIPE_CONNECT"
	PayoutMethodBankTransfer  = "BANK_TRANSFER"
	PayoutMethodPayPal        = "PAYPAL"
	PayoutMethodCheck         = "CHECK"
)

// Payout represents one payout request lifecycle:
// PENDING -> PROCESSING -> COMPLETED, or FAILED at any step before
// completion (with the reserved balance restored). Amount is the campaign's
// full available balance at request time; ProcessingFee is zero for
// connect-style instant transfers and non-zero for manual disbursement
// methods. Amounts are in minor currency units.
type Payout struct {
	ID                 string     `json:"id" db:"id"`
	CampaignID         string     `json:"campaign_id" db:"campaign_id"`
	Amount             int64      `json:"amount" db:"amount"`
	PlatformFee        int64      `json:"platform_fee" db:"platform_fee"`
	ProcessingFee      int64      `json:"processing_fee" db:"processing_fee"`
	NetAmount          int64      `json:"net_amount" db:"net_amount"`
	Status             string     `json:"status" db:"status"`
	PaymentMethod      string     `json:"payment_method" db:"payment_method"`
	Destination        string     `json:"destination" db:"destination"`
	ExternalTransferID string     `json:"external_transfer_id,omitempty" db:"external_transfer_id"`
	FailureReason      string     `json:"failure_reason,omitempty" db:"failure_reason"`
	RequestedAt        time.Time  `json:"requested_at" db:"requested_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
