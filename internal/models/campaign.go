package models

import (
	"time"
)

// Campaign statuses
const (
	CampaignStatusActive = "ACTIVE"
	CampaignStatusClosed = "CLOSED"
)

// Campaign represents a fundraising campaign. All amounts are in minor
// currency units (cents).
//
// Balance bookkeeping: current_amount tracks gross donations and only ever
// grows; available_balance holds net-of-fee funds not yet paid out and must
// never go negative; paid_out is the cumulative net amount transferred to
// the owner and only ever grows.
type Campaign struct {
	ID                string     `json:"id" db:"id"`
	OwnerID           int        `json:"owner_id" db:"owner_id"`
	Title             string     `json:"title" db:"title"`
	Description       string     `json:"description" db:"description"`
	Category          string     `json:"category" db:"category"`
	Currency          string     `json:"currency" db:"currency"`
	GoalAmount        int64      `json:"goal_amount" db:"goal_amount"`
	CurrentAmount     int64      `json:"current_amount" db:"current_amount"`
	AvailableBalance  int64      `json:"available_balance" db:"available_balance"`
	PaidOut           int64      `json:"paid_out" db:"paid_out"`
	PayoutMethod      string     `json:"payout_method,omitempty" db:"payout_method"`
	PayoutDestination string     `json:"payout_destination,omitempty" db:"payout_destination"`
	Status            string     `json:"status" db:"status"`
	Version           int        `json:"version" db:"version"` // for optimistic locking
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
	ClosedAt          *time.Time `json:"closed_at,omitempty" db:"closed_at"`
}

// CampaignBalance is the read snapshot returned by the balance enquiry.
type CampaignBalance struct {
	CampaignID          string `json:"campaignId"`
	AvailableBalance    int64  `json:"availableBalance"`
	PaidOut             int64  `json:"paidOut"`
	CurrentAmount       int64  `json:"currentAmount"`
	MinimumPayoutAmount int64  `json:"minimumPayoutAmount"`
	CanPayout           bool   `json:"canPayout"`
}
