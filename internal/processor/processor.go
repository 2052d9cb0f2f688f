// Package processor abstracts the external card-payment and transfer
// provider behind a narrow interface so business logic never branches on
// the concrete provider and tests can swap in doubles.
package processor

import (
	"context"
	"errors"
)

var (
	// ErrTransferFailed means the provider synchronously rejected the
	// transfer. The caller may reverse its reservation and surface the
	// failure.
	ErrTransferFailed = errors.New("transfer rejected by processor")

	// ErrUnknownOutcome means the call timed out or was interrupted before
	// a definitive answer arrived. The transfer may still have gone
	// through; callers must NOT treat this as a failure, and must resolve
	// the outcome later via webhook or reconciliation.
	ErrUnknownOutcome = errors.New("transfer outcome unknown")
)

// Webhook event types delivered by the provider.
const (
	EventTransferPaid     = "transfer.paid"
	EventTransferFailed   = "transfer.failed"
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

type ChargeParams struct {
	Amount      int64 // minor units
	Currency    string
	DonationID  string
	CampaignID  string
	Description string
}

type ChargeResult struct {
	PaymentID    string
	ClientSecret string
	Status       string
}

type TransferParams struct {
	Amount      int64 // minor units
	Currency    string
	Destination string
	PayoutID    string
	Description string
}

type TransferResult struct {
	TransferID string
}

// Event is a provider webhook notification after signature verification,
// reduced to the fields the ledger cares about. PayoutID / DonationID come
// from the metadata attached when the transfer or charge was created.
type Event struct {
	ID             string
	Type           string
	PayoutID       string
	DonationID     string
	TransferID     string
	PaymentID      string
	Amount         int64
	FailureMessage string
}

// PaymentProcessor is the boundary to the external card-payment and
// transfer provider.
type PaymentProcessor interface {
	// Charge initiates a card payment for a donation and returns the
	// provider's confirmation id.
	Charge(ctx context.Context, params *ChargeParams) (*ChargeResult, error)

	// CreateTransfer moves funds to a campaign owner's destination.
	// Returns ErrUnknownOutcome on timeout and ErrTransferFailed (wrapped
	// with the provider message) on synchronous rejection.
	CreateTransfer(ctx context.Context, params *TransferParams) (*TransferResult, error)

	// VerifyWebhook checks the payload signature and parses the event.
	VerifyWebhook(payload []byte, signature string) (*Event, error)
}
