package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeProcessor implements PaymentProcessor on the Stripe API: card
// charges via PaymentIntents and owner payouts via Connect transfers.
type StripeProcessor struct {
	client        *stripe.Client
	signingSecret string
}

func NewStripeProcessor(apiKey, signingSecret string) *StripeProcessor {
	return &StripeProcessor{
		client:        stripe.NewClient(apiKey),
		signingSecret: signingSecret,
	}
}

func (p *StripeProcessor) Charge(ctx context.Context, params *ChargeParams) (*ChargeResult, error) {
	piParams := &stripe.PaymentIntentCreateParams{
		Amount:      stripe.Int64(params.Amount),
		Currency:    stripe.String(params.Currency),
		Description: stripe.String(params.Description),
	}
	piParams.AddMetadata("donation_id", params.DonationID)
	piParams.AddMetadata("campaign_id", params.CampaignID)

	pi, err := p.client.V1PaymentIntents.Create(ctx, piParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &ChargeResult{
		PaymentID:    pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

func (p *StripeProcessor) CreateTransfer(ctx context.Context, params *TransferParams) (*TransferResult, error) {
	transferParams := &stripe.TransferCreateParams{
		Amount:      stripe.Int64(params.Amount),
		Currency:    stripe.String(params.Currency),
		Destination: stripe.String(params.Destination),
		Description: stripe.String(params.Description),
	}
	transferParams.AddMetadata("payout_id", params.PayoutID)

	transfer, err := p.client.V1Transfers.Create(ctx, transferParams)
	if err != nil {
		return nil, p.classifyTransferError(err)
	}

	return &TransferResult{TransferID: transfer.ID}, nil
}

// classifyTransferError separates "the provider said no" from "we never
// heard back". A timeout means the transfer may have been accepted, so it
// maps to ErrUnknownOutcome and must be resolved by webhook later.
func (p *StripeProcessor) classifyTransferError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnknownOutcome, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrUnknownOutcome, err)
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return fmt.Errorf("%w: %s", ErrTransferFailed, stripeErr.Msg)
	}
	return fmt.Errorf("%w: %v", ErrTransferFailed, err)
}

func (p *StripeProcessor) VerifyWebhook(payload []byte, signature string) (*Event, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, signature, p.signingSecret)
	if err != nil {
		return nil, fmt.Errorf("error verifying webhook signature: %w", err)
	}

	event := &Event{
		ID:   stripeEvent.ID,
		Type: string(stripeEvent.Type),
	}

	switch event.Type {
	case EventTransferPaid, EventTransferFailed:
		var transfer stripe.Transfer
		if err := json.Unmarshal(stripeEvent.Data.Raw, &transfer); err != nil {
			return nil, fmt.Errorf("failed to parse transfer event: %w", err)
		}
		event.TransferID = transfer.ID
		event.Amount = transfer.Amount
		event.PayoutID = transfer.Metadata["payout_id"]
		if event.Type == EventTransferFailed {
			event.FailureMessage = "transfer failed at provider"
		}
	case EventPaymentSucceeded, EventPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(stripeEvent.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("failed to parse payment event: %w", err)
		}
		event.PaymentID = pi.ID
		event.Amount = pi.Amount
		event.DonationID = pi.Metadata["donation_id"]
		if pi.LastPaymentError != nil {
			event.FailureMessage = pi.LastPaymentError.Msg
		}
	default:
		log.Printf("[WEBHOOK] Ignoring unhandled event type: %s", event.Type)
	}

	return event, nil
}
