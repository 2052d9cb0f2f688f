package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/givehub/backend/internal/config"
	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/processor"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var (
	ErrNotOwner           = errors.New("requester does not own this campaign")
	ErrDestinationMissing = errors.New("campaign has no payout destination configured")
	ErrBelowMinimumPayout = errors.New("available balance is below the minimum payout amount")
)

// PayoutService orchestrates payout requests: reserve the balance, hand
// the transfer to the payment processor, and settle or reverse based on
// the outcome. The ledger reservation always commits before the transfer
// call, so no database lock is held across the network.
type PayoutService struct {
	db        *sql.DB
	ledger    *LedgerService
	processor processor.PaymentProcessor
	notifier  *NotificationService
	cfg       *config.PayoutConfig
	fees      *config.FeeSchedule
}

func NewPayoutService(db *sql.DB, ledger *LedgerService, proc processor.PaymentProcessor, notifier *NotificationService, cfg *config.PayoutConfig, fees *config.FeeSchedule) *PayoutService {
	return &PayoutService{
		db:        db,
		ledger:    ledger,
		processor: proc,
		notifier:  notifier,
		cfg:       cfg,
		fees:      fees,
	}
}

// campaignPayoutInfo is the campaign snapshot needed to vet a payout request.
type campaignPayoutInfo struct {
	OwnerID          int
	AvailableBalance int64
	PayoutMethod     string
	Destination      string
	Currency         string
}

// RequestPayout requests a payout of a campaign's full available balance
// @Summary Request a payout
// @Description Reserve the campaign's available balance and initiate a transfer to its payout destination
// @Tags payouts
// @Produce json
// @Param campaignId path string true "Campaign ID"
// @Success 200 {object} object{payout=models.Payout}
// @Success 202 {object} object{payout=models.Payout,message=string}
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /campaigns/{campaignId}/payouts [post]
func (ps *PayoutService) RequestPayout(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignId")

	requesterID := 0
	if userID, ok := r.Context().Value("userID").(string); ok {
		requesterID, _ = strconv.Atoi(userID)
	}

	info, err := ps.fetchCampaignPayoutInfo(campaignID)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Campaign not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to fetch campaign", http.StatusInternalServerError)
		}
		return
	}

	if err := ps.vetPayoutRequest(info, requesterID); err != nil {
		switch {
		case errors.Is(err, ErrNotOwner):
			log.Printf("[PAYOUT] User %d attempted payout on campaign %s owned by %d", requesterID, campaignID, info.OwnerID)
			http.Error(w, "Only the campaign owner can request payouts", http.StatusForbidden)
		case errors.Is(err, ErrDestinationMissing):
			http.Error(w, "Campaign has no payout destination configured", http.StatusConflict)
		case errors.Is(err, ErrBelowMinimumPayout):
			SendErrorResponse(w,
				fmt.Sprintf("Available balance %d is below the minimum payout amount %d", info.AvailableBalance, ps.cfg.MinimumAmount),
				http.StatusBadRequest, nil)
		default:
			http.Error(w, "Payout request rejected", http.StatusBadRequest)
		}
		return
	}

	payout := ps.buildPayout(campaignID, info)

	if err := ps.ledger.Reserve(payout); err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			// Balance moved between the read and the locked reservation.
			SendErrorResponse(w, "Insufficient balance", http.StatusBadRequest, nil)
			return
		}
		log.Printf("[PAYOUT] Reservation failed for campaign %s: %v", campaignID, err)
		http.Error(w, "Failed to reserve payout", http.StatusInternalServerError)
		return
	}

	log.Printf("[PAYOUT] Reserved payout %s for campaign %s: amount=%d net=%d method=%s",
		payout.ID, campaignID, payout.Amount, payout.NetAmount, payout.PaymentMethod)

	ctx, cancel := context.WithTimeout(r.Context(), ps.cfg.TransferTimeout)
	defer cancel()

	transfer, err := ps.processor.CreateTransfer(ctx, &processor.TransferParams{
		Amount:      payout.NetAmount,
		Currency:    info.Currency,
		Destination: payout.Destination,
		PayoutID:    payout.ID,
		Description: fmt.Sprintf("Payout for campaign %s", campaignID),
	})

	switch {
	case err == nil:
		if err := ps.ledger.MarkProcessing(payout.ID, transfer.TransferID); err != nil {
			log.Printf("[PAYOUT] Failed to mark payout %s processing: %v", payout.ID, err)
		}
		payout.Status = models.PayoutStatusProcessing
		payout.ExternalTransferID = transfer.TransferID

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"payout": payout})

	case errors.Is(err, processor.ErrUnknownOutcome):
		// The transfer may or may not have gone through. Leave the
		// reservation in place and let the webhook settle it.
		log.Printf("[PAYOUT] Transfer outcome unknown for payout %s: %v", payout.ID, err)
		if err := ps.ledger.MarkProcessing(payout.ID, ""); err != nil {
			log.Printf("[PAYOUT] Failed to mark payout %s processing: %v", payout.ID, err)
		}
		payout.Status = models.PayoutStatusProcessing

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]any{
			"payout":  payout,
			"message": "Transfer initiated, completion pending confirmation",
		})

	default:
		// Definitive synchronous rejection: put the money back.
		log.Printf("[PAYOUT] Transfer rejected for payout %s: %v", payout.ID, err)
		if revErr := ps.ledger.Reverse(payout.ID, err.Error()); revErr != nil {
			log.Printf("[PAYOUT] ALERT: reversal failed for payout %s: %v", payout.ID, revErr)
		}
		http.Error(w, "Transfer was rejected by the payment provider", http.StatusBadGateway)
	}
}

// vetPayoutRequest checks that a payout may be attempted at all, before
// any balance is reserved.
func (ps *PayoutService) vetPayoutRequest(info *campaignPayoutInfo, requesterID int) error {
	if info.OwnerID != requesterID {
		return ErrNotOwner
	}
	if info.Destination == "" {
		return ErrDestinationMissing
	}
	if info.AvailableBalance < ps.cfg.MinimumAmount {
		return ErrBelowMinimumPayout
	}
	return nil
}

// buildPayout computes the fee split for a payout of the full available
// balance. Connect-style transfers carry no processing fee; manual
// disbursement methods pay the standard processing schedule.
func (ps *PayoutService) buildPayout(campaignID string, info *campaignPayoutInfo) *models.Payout {
	amount := info.AvailableBalance
	platformFee := PayoutFee(amount, ps.cfg.PlatformFeePercent)

	var processingFee int64
	if info.PayoutMethod != models.PayoutMethodStripeConnect {
		processingFee = roundHalfUp(float64(amount)*ps.fees.ProcessingFeePercent/100) + ps.fees.ProcessingFeeFixed
	}

	return &models.Payout{
		ID:            uuid.New().String(),
		CampaignID:    campaignID,
		Amount:        amount,
		PlatformFee:   platformFee,
		ProcessingFee: processingFee,
		NetAmount:     amount - platformFee - processingFee,
		Status:        models.PayoutStatusPending,
		PaymentMethod: info.PayoutMethod,
		Destination:   info.Destination,
	}
}

// HandleTransferEvent applies a verified transfer webhook event to the
// ledger. Both branches are idempotent, so redelivered events are safe.
func (ps *PayoutService) HandleTransferEvent(event *processor.Event) error {
	if event.PayoutID == "" {
		log.Printf("[PAYOUT] Transfer event %s carries no payout id, ignoring", event.ID)
		return nil
	}

	switch event.Type {
	case processor.EventTransferPaid:
		if err := ps.ledger.Finalize(event.PayoutID); err != nil {
			return fmt.Errorf("failed to finalize payout %s: %w", event.PayoutID, err)
		}
		go ps.confirmPayout(event.PayoutID)
		return nil
	case processor.EventTransferFailed:
		reason := event.FailureMessage
		if reason == "" {
			reason = "transfer failed"
		}
		if err := ps.ledger.Reverse(event.PayoutID, reason); err != nil {
			return fmt.Errorf("failed to reverse payout %s: %w", event.PayoutID, err)
		}
		return nil
	default:
		log.Printf("[PAYOUT] Ignoring transfer event type %s", event.Type)
		return nil
	}
}

// ListPayouts retrieves payouts for a campaign
// @Summary List campaign payouts
// @Description Get payout history for a campaign, most recent first
// @Tags payouts
// @Produce json
// @Param campaignId path string true "Campaign ID"
// @Success 200 {object} object{payouts=[]models.Payout,count=int}
// @Failure 403 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /campaigns/{campaignId}/payouts [get]
func (ps *PayoutService) ListPayouts(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignId")

	requesterID := 0
	if userID, ok := r.Context().Value("userID").(string); ok {
		requesterID, _ = strconv.Atoi(userID)
	}

	info, err := ps.fetchCampaignPayoutInfo(campaignID)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Campaign not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to fetch campaign", http.StatusInternalServerError)
		}
		return
	}
	if info.OwnerID != requesterID {
		http.Error(w, "Only the campaign owner can view payouts", http.StatusForbidden)
		return
	}

	rows, err := ps.db.Query(`
		SELECT id, campaign_id, amount, platform_fee, processing_fee, net_amount,
			status, payment_method, external_transfer_id, failure_reason, requested_at, completed_at
		FROM payouts
		WHERE campaign_id = $1
		ORDER BY requested_at DESC`, campaignID)
	if err != nil {
		http.Error(w, "Failed to fetch payouts", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	payouts := []models.Payout{}
	for rows.Next() {
		var p models.Payout
		var transferID, failureReason sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.CampaignID, &p.Amount, &p.PlatformFee, &p.ProcessingFee,
			&p.NetAmount, &p.Status, &p.PaymentMethod, &transferID, &failureReason,
			&p.RequestedAt, &completedAt); err != nil {
			http.Error(w, "Failed to read payouts", http.StatusInternalServerError)
			return
		}
		p.ExternalTransferID = transferID.String
		p.FailureReason = failureReason.String
		if completedAt.Valid {
			t := completedAt.Time
			p.CompletedAt = &t
		}
		payouts = append(payouts, p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"payouts": payouts,
		"count":   len(payouts),
	})
}

// GetPayout retrieves a single payout
// @Summary Get payout
// @Description Get a payout by id
// @Tags payouts
// @Produce json
// @Param payoutId path string true "Payout ID"
// @Success 200 {object} models.Payout
// @Failure 404 {object} map[string]string
// @Router /payouts/{payoutId} [get]
func (ps *PayoutService) GetPayout(w http.ResponseWriter, r *http.Request) {
	payoutID := chi.URLParam(r, "payoutId")

	var p models.Payout
	var transferID, failureReason sql.NullString
	var completedAt sql.NullTime
	err := ps.db.QueryRow(`
		SELECT id, campaign_id, amount, platform_fee, processing_fee, net_amount,
			status, payment_method, external_transfer_id, failure_reason, requested_at, completed_at
		FROM payouts
		WHERE id = $1`, payoutID).
		Scan(&p.ID, &p.CampaignID, &p.Amount, &p.PlatformFee, &p.ProcessingFee,
			&p.NetAmount, &p.Status, &p.PaymentMethod, &transferID, &failureReason,
			&p.RequestedAt, &completedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Payout not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to fetch payout", http.StatusInternalServerError)
		}
		return
	}
	p.ExternalTransferID = transferID.String
	p.FailureReason = failureReason.String
	if completedAt.Valid {
		t := completedAt.Time
		p.CompletedAt = &t
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

func (ps *PayoutService) fetchCampaignPayoutInfo(campaignID string) (*campaignPayoutInfo, error) {
	var info campaignPayoutInfo
	var method, destination sql.NullString
	err := ps.db.QueryRow(`
		SELECT owner_id, available_balance, payout_method, payout_destination, currency
		FROM campaigns
		WHERE id = $1`, campaignID).
		Scan(&info.OwnerID, &info.AvailableBalance, &method, &destination, &info.Currency)
	if err != nil {
		return nil, err
	}
	info.PayoutMethod = method.String
	if info.PayoutMethod == "" {
		info.PayoutMethod = models.PayoutMethodStripeConnect
	}
	info.Destination = destination.String
	return &info, nil
}

func (ps *PayoutService) confirmPayout(payoutID string) {
	var p models.Payout
	err := ps.db.QueryRow(`
		SELECT id, campaign_id, amount, net_amount, status
		FROM payouts
		WHERE id = $1`, payoutID).
		Scan(&p.ID, &p.CampaignID, &p.Amount, &p.NetAmount, &p.Status)
	if err != nil {
		log.Printf("Notification skipped, payout %s not found: %v", payoutID, err)
		return
	}
	ps.notifier.SendPayoutConfirmation(&p)
}
