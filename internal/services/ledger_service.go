package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/givehub/backend/internal/config"
	"github.com/givehub/backend/internal/models"
	"github.com/google/uuid"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrPayoutNotFound      = errors.New("payout not found")
)

// LedgerService owns every mutation of a campaign's balance fields. Each
// operation runs in a single SQL transaction that locks the campaign row
// (SELECT ... FOR UPDATE) for the duration of the read-modify-write, so
// concurrent donations and payouts on the same campaign serialize instead
// of losing updates. No lock is ever held across a network call: payout
// reservations commit before the external transfer is attempted.
type LedgerService struct {
	db    *sql.DB
	fees  *config.FeeSchedule
	audit *AuditLogger
}

func NewLedgerService(db *sql.DB, fees *config.FeeSchedule) *LedgerService {
	return &LedgerService{
		db:    db,
		fees:  fees,
		audit: NewAuditLogger(),
	}
}

// lockedCampaign is the subset of campaign fields read under FOR UPDATE.
type lockedCampaign struct {
	ID               string
	CurrentAmount    int64
	AvailableBalance int64
	PaidOut          int64
	Version          int
}

// Credit applies a completed donation to a campaign: computes the fee
// split, bumps current_amount by the gross and available_balance by the
// net, and appends a completed donation Transaction — all atomically.
//
// Idempotent per donation: if a ledger entry for donationID already
// exists, the existing transaction is returned and nothing changes. This
// guards against retried webhook deliveries double-crediting a campaign.
func (s *LedgerService) Credit(campaignID, donationID string, grossAmount int64) (*models.Transaction, error) {
	breakdown, err := CalculateFees(grossAmount, *s.fees)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if existing, err := s.findTransactionByDonation(tx, donationID); err == nil {
		log.Printf("[LEDGER] Duplicate credit for donation %s, returning existing entry %s", donationID, existing.TransactionID)
		return existing, nil
	} else if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check for existing credit: %w", err)
	}

	campaign, err := s.lockCampaign(tx, campaignID)
	if err != nil {
		return nil, err
	}

	if err := s.updateCampaignBalances(tx, campaign.ID,
		campaign.CurrentAmount+grossAmount,
		campaign.AvailableBalance+breakdown.NetAmount,
		campaign.PaidOut,
		campaign.Version); err != nil {
		return nil, err
	}

	entry := &models.Transaction{
		TransactionID: uuid.New().String(),
		CampaignID:    campaignID,
		DonationID:    donationID,
		Type:          models.TransactionTypeDonation,
		Amount:        breakdown.Amount,
		PlatformFee:   breakdown.PlatformFee,
		ProcessingFee: breakdown.ProcessingFee,
		NetAmount:     breakdown.NetAmount,
		Status:        models.TransactionStatusCompleted,
	}
	if err := s.insertTransaction(tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit credit: %w", err)
	}

	s.audit.LogCredit(entry.TransactionID, campaignID, donationID, breakdown)
	return entry, nil
}

// Reserve debits the campaign's available balance for a payout request and
// records the payout plus its audit Transaction in the same SQL
// transaction. The full available balance is reserved up front, before the
// external transfer's outcome is known; Reverse restores it if the
// transfer fails. The Transaction is written here (status PROCESSING) so
// a later reversal always has an entry to flip to FAILED.
func (s *LedgerService) Reserve(payout *models.Payout) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	campaign, err := s.lockCampaign(tx, payout.CampaignID)
	if err != nil {
		return err
	}

	if payout.Amount > campaign.AvailableBalance {
		return ErrInsufficientBalance
	}

	if err := s.updateCampaignBalances(tx, campaign.ID,
		campaign.CurrentAmount,
		campaign.AvailableBalance-payout.Amount,
		campaign.PaidOut,
		campaign.Version); err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO payouts (id, campaign_id, amount, platform_fee, processing_fee, net_amount,
			status, payment_method, destination, requested_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		payout.ID, payout.CampaignID, payout.Amount, payout.PlatformFee, payout.ProcessingFee,
		payout.NetAmount, models.PayoutStatusPending, payout.PaymentMethod, payout.Destination, time.Now())
	if err != nil {
		return fmt.Errorf("failed to create payout: %w", err)
	}

	entry := &models.Transaction{
		TransactionID: uuid.New().String(),
		CampaignID:    payout.CampaignID,
		PayoutID:      payout.ID,
		Type:          models.TransactionTypePayout,
		Amount:        payout.Amount,
		PlatformFee:   payout.PlatformFee,
		ProcessingFee: payout.ProcessingFee,
		NetAmount:     payout.NetAmount,
		Status:        models.TransactionStatusProcessing,
	}
	if err := s.insertTransaction(tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}

	payout.Status = models.PayoutStatusPending
	s.audit.LogReserve(entry.TransactionID, payout.CampaignID, payout.ID, payout.Amount)
	return nil
}

// MarkProcessing transitions a payout PENDING -> PROCESSING once the
// external transfer has been initiated, storing the provider's transfer id
// (empty when the outcome is still unknown).
func (s *LedgerService) MarkProcessing(payoutID, externalTransferID string) error {
	result, err := s.db.Exec(`
		UPDATE payouts
		SET status = $1, external_transfer_id = $2, updated_at = $3
		WHERE id = $4 AND status = $5`,
		models.PayoutStatusProcessing, externalTransferID, time.Now(), payoutID, models.PayoutStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark payout processing: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Already resolved by a racing webhook; nothing to do.
		log.Printf("[LEDGER] Payout %s no longer pending, skipping processing transition", payoutID)
	}
	return nil
}

// Reverse restores the campaign's available balance by the payout's
// reserved amount and marks the payout and its Transaction FAILED, all
// atomically. Used when the external transfer is rejected, either
// synchronously or via webhook. Idempotent: reversing an already-failed
// or already-completed payout is a no-op.
func (s *LedgerService) Reverse(payoutID, reason string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	payout, err := s.lockPayout(tx, payoutID)
	if err != nil {
		return err
	}

	if payout.Status == models.PayoutStatusFailed || payout.Status == models.PayoutStatusCompleted {
		log.Printf("[LEDGER] Payout %s already %s, skipping reversal", payoutID, payout.Status)
		return nil
	}

	campaign, err := s.lockCampaign(tx, payout.CampaignID)
	if err != nil {
		return err
	}

	if err := s.updateCampaignBalances(tx, campaign.ID,
		campaign.CurrentAmount,
		campaign.AvailableBalance+payout.Amount,
		campaign.PaidOut,
		campaign.Version); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		UPDATE payouts SET status = $1, failure_reason = $2, updated_at = $3 WHERE id = $4`,
		models.PayoutStatusFailed, reason, time.Now(), payoutID); err != nil {
		return fmt.Errorf("failed to mark payout failed: %w", err)
	}

	if err := s.updatePayoutTransactionStatus(tx, payoutID, models.TransactionStatusFailed); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reversal: %w", err)
	}

	s.audit.LogReverse(payout.CampaignID, payoutID, payout.Amount, reason)
	return nil
}

// Finalize settles a payout after the provider confirms the transfer:
// bumps paid_out by the payout's net amount and marks the payout and its
// Transaction COMPLETED. The available balance is untouched — the debit
// already happened at reservation time. Idempotent against duplicate
// webhook deliveries.
func (s *LedgerService) Finalize(payoutID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	payout, err := s.lockPayout(tx, payoutID)
	if err != nil {
		return err
	}

	if payout.Status == models.PayoutStatusCompleted {
		log.Printf("[LEDGER] Payout %s already completed, skipping finalize", payoutID)
		return nil
	}
	if payout.Status == models.PayoutStatusFailed {
		// The reservation was already reversed but the provider now says
		// the transfer went through. Flag for manual reconciliation
		// instead of corrupting the balance.
		log.Printf("[LEDGER] ALERT: transfer confirmed for reversed payout %s, manual reconciliation required", payoutID)
		return nil
	}

	campaign, err := s.lockCampaign(tx, payout.CampaignID)
	if err != nil {
		return err
	}

	if err := s.updateCampaignBalances(tx, campaign.ID,
		campaign.CurrentAmount,
		campaign.AvailableBalance,
		campaign.PaidOut+payout.NetAmount,
		campaign.Version); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		UPDATE payouts SET status = $1, completed_at = $2, updated_at = $2 WHERE id = $3`,
		models.PayoutStatusCompleted, time.Now(), payoutID); err != nil {
		return fmt.Errorf("failed to mark payout completed: %w", err)
	}

	if err := s.updatePayoutTransactionStatus(tx, payoutID, models.TransactionStatusCompleted); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit finalization: %w", err)
	}

	s.audit.LogFinalize(payout.CampaignID, payoutID, payout.NetAmount)
	return nil
}

// CampaignBalance returns a point-in-time balance snapshot.
func (s *LedgerService) CampaignBalance(campaignID string, minimumPayout int64) (*models.CampaignBalance, error) {
	var bal models.CampaignBalance
	err := s.db.QueryRow(`
		SELECT id, available_balance, paid_out, current_amount
		FROM campaigns
		WHERE id = $1`, campaignID).
		Scan(&bal.CampaignID, &bal.AvailableBalance, &bal.PaidOut, &bal.CurrentAmount)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to fetch campaign balance: %w", err)
	}

	bal.MinimumPayoutAmount = minimumPayout
	bal.CanPayout = bal.AvailableBalance >= minimumPayout
	return &bal, nil
}

func (s *LedgerService) lockCampaign(tx *sql.Tx, campaignID string) (*lockedCampaign, error) {
	var campaign lockedCampaign
	err := tx.QueryRow(`
		SELECT id, current_amount, available_balance, paid_out, version
		FROM campaigns
		WHERE id = $1
		FOR UPDATE`, campaignID).
		Scan(&campaign.ID, &campaign.CurrentAmount, &campaign.AvailableBalance, &campaign.PaidOut, &campaign.Version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to lock campaign: %w", err)
	}
	return &campaign, nil
}

// lockedPayout is the subset of payout fields read under FOR UPDATE.
type lockedPayout struct {
	ID         string
	CampaignID string
	Amount     int64
	NetAmount  int64
	Status     string
}

func (s *LedgerService) lockPayout(tx *sql.Tx, payoutID string) (*lockedPayout, error) {
	var payout lockedPayout
	err := tx.QueryRow(`
		SELECT id, campaign_id, amount, net_amount, status
		FROM payouts
		WHERE id = $1
		FOR UPDATE`, payoutID).
		Scan(&payout.ID, &payout.CampaignID, &payout.Amount, &payout.NetAmount, &payout.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to lock payout: %w", err)
	}
	return &payout, nil
}

func (s *LedgerService) updateCampaignBalances(tx *sql.Tx, campaignID string, currentAmount, availableBalance, paidOut int64, version int) error {
	result, err := tx.Exec(`
		UPDATE campaigns
		SET current_amount = $1, available_balance = $2, paid_out = $3, version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6`,
		currentAmount, availableBalance, paidOut, time.Now(), campaignID, version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("optimistic lock failed for campaign %s", campaignID)
	}

	return nil
}

func (s *LedgerService) insertTransaction(tx *sql.Tx, entry *models.Transaction) error {
	_, err := tx.Exec(`
		INSERT INTO transactions (transaction_id, campaign_id, donation_id, payout_id, type,
			amount, platform_fee, processing_fee, net_amount, status, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $11)`,
		entry.TransactionID, entry.CampaignID, entry.DonationID, entry.PayoutID, entry.Type,
		entry.Amount, entry.PlatformFee, entry.ProcessingFee, entry.NetAmount, entry.Status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

func (s *LedgerService) updatePayoutTransactionStatus(tx *sql.Tx, payoutID, status string) error {
	if _, err := tx.Exec(`
		UPDATE transactions SET status = $1, updated_at = $2 WHERE payout_id = $3`,
		status, time.Now(), payoutID); err != nil {
		return fmt.Errorf("failed to update ledger entry status: %w", err)
	}
	return nil
}

func (s *LedgerService) findTransactionByDonation(tx *sql.Tx, donationID string) (*models.Transaction, error) {
	var entry models.Transaction
	err := tx.QueryRow(`
		SELECT transaction_id, campaign_id, donation_id, type, amount, platform_fee, processing_fee, net_amount, status
		FROM transactions
		WHERE donation_id = $1`, donationID).
		Scan(&entry.TransactionID, &entry.CampaignID, &entry.DonationID, &entry.Type,
			&entry.Amount, &entry.PlatformFee, &entry.ProcessingFee, &entry.NetAmount, &entry.Status)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
