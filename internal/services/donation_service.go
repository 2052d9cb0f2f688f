package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/givehub/backend/internal/config"
	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/processor"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// DonationService handles the credit side of the ledger: creating
// donations, charging cards through the payment processor, and crediting
// campaigns once payments complete.
type DonationService struct {
	db        *sql.DB
	ledger    *LedgerService
	processor processor.PaymentProcessor
	notifier  *NotificationService
	validator *ValidationHelper
	payoutCfg *config.PayoutConfig
}

func NewDonationService(db *sql.DB, ledger *LedgerService, proc processor.PaymentProcessor, notifier *NotificationService, payoutCfg *config.PayoutConfig) *DonationService {
	return &DonationService{
		db:        db,
		ledger:    ledger,
		processor: proc,
		notifier:  notifier,
		validator: NewValidationHelper(),
		payoutCfg: payoutCfg,
	}
}

// DonationRequest is the payload for creating a donation.
type DonationRequest struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"` // minor units
	Currency  string `json:"currency" validate:"required,len=3"`
	Message   string `json:"message" validate:"max=500"`
	Anonymous bool   `json:"anonymous"`
}

// CompleteDonationRequest is the payload confirming a donation's payment.
type CompleteDonationRequest struct {
	CampaignID string `json:"campaignId" validate:"required"`
	DonationID string `json:"donationId" validate:"required"`
	Amount     int64  `json:"amount" validate:"required,gt=0"`
}

// CreateDonation creates a pending donation and initiates the card charge
// @Summary Create a donation
// @Description Create a pending donation and a payment intent for it
// @Tags donations
// @Accept json
// @Produce json
// @Param campaignId path string true "Campaign ID"
// @Param donation body DonationRequest true "Donation data"
// @Success 201 {object} object{donationId=string,paymentId=string,clientSecret=string}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} map[string]string
// @Router /campaigns/{campaignId}/donations [post]
func (ds *DonationService) CreateDonation(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignId")

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req DonationRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := ds.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	// Refuse amounts the fee schedule would swallow before any card is
	// charged, since such a donation could never be credited.
	if _, err := CalculateFees(req.Amount, *ds.ledger.fees); err != nil {
		SendErrorResponse(w, "Donation amount does not cover processing fees", http.StatusBadRequest, nil)
		return
	}

	var status string
	err := ds.db.QueryRow(`SELECT status FROM campaigns WHERE id = $1`, campaignID).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Campaign not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to fetch campaign", http.StatusInternalServerError)
		}
		return
	}
	if status != models.CampaignStatusActive {
		http.Error(w, "Campaign is not accepting donations", http.StatusForbidden)
		return
	}

	donorID := 0
	if userID, ok := r.Context().Value("userID").(string); ok {
		donorID, _ = strconv.Atoi(userID)
	}

	donation := &models.Donation{
		ID:         uuid.New().String(),
		CampaignID: campaignID,
		DonorID:    donorID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Message:    req.Message,
		Anonymous:  req.Anonymous,
		Status:     models.DonationStatusPending,
	}

	charge, err := ds.processor.Charge(r.Context(), &processor.ChargeParams{
		Amount:      donation.Amount,
		Currency:    donation.Currency,
		DonationID:  donation.ID,
		CampaignID:  campaignID,
		Description: fmt.Sprintf("Donation to campaign %s", campaignID),
	})
	if err != nil {
		log.Printf("[DONATION] Charge initiation failed for campaign %s: %v", campaignID, err)
		http.Error(w, "Failed to initiate payment", http.StatusBadGateway)
		return
	}
	donation.PaymentRef = charge.PaymentID

	_, err = ds.db.Exec(`
		INSERT INTO donations (id, campaign_id, donor_id, amount, currency, message, anonymous, payment_ref, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		donation.ID, donation.CampaignID, donation.DonorID, donation.Amount, donation.Currency,
		donation.Message, donation.Anonymous, donation.PaymentRef, donation.Status, time.Now())
	if err != nil {
		log.Printf("[DONATION] Failed to store donation %s: %v", donation.ID, err)
		http.Error(w, "Failed to create donation", http.StatusInternalServerError)
		return
	}

	log.Printf("[DONATION] Created donation %s for campaign %s, amount %d", donation.ID, campaignID, donation.Amount)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"donationId":   donation.ID,
		"paymentId":    charge.PaymentID,
		"clientSecret": charge.ClientSecret,
	})
}

// CompleteDonation confirms a paid donation and credits the campaign
// @Summary Complete a donation
// @Description Credit a campaign for a confirmed donation payment (idempotent per donation)
// @Tags donations
// @Accept json
// @Produce json
// @Param request body CompleteDonationRequest true "Completion data"
// @Success 200 {object} object{success=bool,transaction=models.Transaction}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} map[string]string
// @Router /donations/complete [post]
func (ds *DonationService) CompleteDonation(w http.ResponseWriter, r *http.Request) {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req CompleteDonationRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := ds.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	entry, err := ds.Complete(req.CampaignID, req.DonationID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrCampaignNotFound):
			http.Error(w, "Campaign not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidAmount):
			SendErrorResponse(w, "Amount must be positive", http.StatusBadRequest, nil)
		case errors.Is(err, ErrAmountBelowFees):
			SendErrorResponse(w, "Donation amount does not cover processing fees", http.StatusBadRequest, nil)
		default:
			log.Printf("[DONATION] Failed to complete donation %s: %v", req.DonationID, err)
			http.Error(w, "Failed to complete donation", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":     true,
		"transaction": entry,
	})
}

// Complete credits the campaign for a confirmed donation and marks the
// donation row completed. Safe to call more than once per donation: the
// ledger short-circuits duplicates. Used by both the completion endpoint
// and the payment webhook.
func (ds *DonationService) Complete(campaignID, donationID string, amount int64) (*models.Transaction, error) {
	entry, err := ds.ledger.Credit(campaignID, donationID, amount)
	if err != nil {
		return nil, err
	}

	if _, err := ds.db.Exec(`
		UPDATE donations SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		models.DonationStatusCompleted, time.Now(), donationID, models.DonationStatusPending); err != nil {
		// The credit is already committed; the donation row catches up on
		// the next delivery. Log and carry on.
		log.Printf("[DONATION] Failed to mark donation %s completed: %v", donationID, err)
	}

	go ds.sendReceipt(donationID, campaignID, entry)

	return entry, nil
}

// HandlePaymentEvent applies a verified payment webhook event.
func (ds *DonationService) HandlePaymentEvent(event *processor.Event) error {
	switch event.Type {
	case processor.EventPaymentSucceeded:
		donation, err := ds.fetchDonation(event.DonationID)
		if err != nil {
			return fmt.Errorf("donation %s not found for payment event: %w", event.DonationID, err)
		}
		_, err = ds.Complete(donation.CampaignID, donation.ID, donation.Amount)
		return err
	case processor.EventPaymentFailed:
		_, err := ds.db.Exec(`
			UPDATE donations SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
			models.DonationStatusFailed, time.Now(), event.DonationID, models.DonationStatusPending)
		return err
	default:
		log.Printf("[DONATION] Ignoring payment event type %s", event.Type)
		return nil
	}
}

// ListDonations retrieves donations for a campaign
// @Summary List campaign donations
// @Description Get donations for a campaign, most recent first
// @Tags donations
// @Produce json
// @Param campaignId path string true "Campaign ID"
// @Param limit query int false "Number of donations to return (default: 50, max: 100)"
// @Success 200 {object} object{donations=[]models.Donation,count=int}
// @Failure 500 {object} map[string]string
// @Router /campaigns/{campaignId}/donations [get]
func (ds *DonationService) ListDonations(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignId")

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	rows, err := ds.db.Query(`
		SELECT id, campaign_id, donor_id, amount, currency, message, anonymous, status, created_at
		FROM donations
		WHERE campaign_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT $3`, campaignID, models.DonationStatusCompleted, limit)
	if err != nil {
		http.Error(w, "Failed to fetch donations", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	donations := []models.Donation{}
	for rows.Next() {
		var d models.Donation
		if err := rows.Scan(&d.ID, &d.CampaignID, &d.DonorID, &d.Amount, &d.Currency,
			&d.Message, &d.Anonymous, &d.Status, &d.CreatedAt); err != nil {
			http.Error(w, "Failed to read donations", http.StatusInternalServerError)
			return
		}
		if d.Anonymous {
			d.DonorID = 0
		}
		donations = append(donations, d)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"donations": donations,
		"count":     len(donations),
	})
}

// CampaignBalanceEnquiry retrieves the ledger balance for a campaign
// @Summary Get campaign balance
// @Description Retrieve available balance, paid-out total and payout eligibility for a campaign
// @Tags campaigns
// @Produce json
// @Param campaignId path string true "Campaign ID"
// @Success 200 {object} models.CampaignBalance
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /campaigns/{campaignId}/balance [get]
func (ds *DonationService) CampaignBalanceEnquiry(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignId")
	log.Printf("[BALANCE_ENQUIRY] Balance enquiry for campaign: %s from IP: %s", campaignID, r.RemoteAddr)

	balance, err := ds.ledger.CampaignBalance(campaignID, ds.payoutCfg.MinimumAmount)
	if err != nil {
		if errors.Is(err, ErrCampaignNotFound) {
			http.Error(w, "Campaign not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to fetch balance", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(balance)
}

func (ds *DonationService) fetchDonation(donationID string) (*models.Donation, error) {
	var d models.Donation
	err := ds.db.QueryRow(`
		SELECT id, campaign_id, donor_id, amount, currency, status
		FROM donations
		WHERE id = $1`, donationID).
		Scan(&d.ID, &d.CampaignID, &d.DonorID, &d.Amount, &d.Currency, &d.Status)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (ds *DonationService) sendReceipt(donationID, campaignID string, entry *models.Transaction) {
	donation, err := ds.fetchDonation(donationID)
	if err != nil {
		log.Printf("Notification skipped, donation %s not found: %v", donationID, err)
		return
	}
	ds.notifier.SendReceipt(donation, &FeeBreakdown{
		Amount:        entry.Amount,
		PlatformFee:   entry.PlatformFee,
		ProcessingFee: entry.ProcessingFee,
		NetAmount:     entry.NetAmount,
	})
}
