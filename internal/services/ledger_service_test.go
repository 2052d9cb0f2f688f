package services

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/givehub/backend/internal/config"
	"github.com/givehub/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func newLedgerForTest(t *testing.T) (*LedgerService, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	fees := &config.FeeSchedule{
		PlatformFeePercent:   5.0,
		ProcessingFeePercent: 2.9,
		ProcessingFeeFixed:   30,
	}
	return NewLedgerService(db, fees), mock, db
}

func TestLedgerService_Credit(t *testing.T) {
	service, mock, db := newLedgerForTest(t)
	defer db.Close()

	campaignID := "camp1"
	donationID := "don1"

	t.Run("successful credit", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT transaction_id, campaign_id, donation_id, type, amount, platform_fee, processing_fee, net_amount, status").
			WithArgs(donationID).
			WillReturnError(sql.ErrNoRows)

		mock.ExpectQuery("SELECT id, current_amount, available_balance, paid_out, version FROM campaigns WHERE id = \\$1 FOR UPDATE").
			WithArgs(campaignID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "current_amount", "available_balance", "paid_out", "version"}).
				AddRow(campaignID, 0, 0, 0, 1))

		// gross 5000 splits into 250 platform + 175 processing + 4575 net
		mock.ExpectExec("UPDATE campaigns SET current_amount = \\$1, available_balance = \\$2, paid_out = \\$3, version = version \\+ 1").
			WithArgs(int64(5000), int64(4575), int64(0), sqlmock.AnyArg(), campaignID, 1).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(sqlmock.AnyArg(), campaignID, donationID, "", models.TransactionTypeDonation,
				int64(5000), int64(250), int64(175), int64(4575), models.TransactionStatusCompleted, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectCommit()

		entry, err := service.Credit(campaignID, donationID, 5000)
		assert.NoError(t, err)
		assert.Equal(t, int64(4575), entry.NetAmount)
		assert.Equal(t, models.TransactionStatusCompleted, entry.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate credit returns existing entry", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT transaction_id, campaign_id, donation_id, type, amount, platform_fee, processing_fee, net_amount, status").
			WithArgs(donationID).
			WillReturnRows(sqlmock.NewRows([]string{"transaction_id", "campaign_id", "donation_id", "type",
				"amount", "platform_fee", "processing_fee", "net_amount", "status"}).
				AddRow("tx-existing", campaignID, donationID, models.TransactionTypeDonation,
					5000, 250, 175, 4575, models.TransactionStatusCompleted))

		mock.ExpectRollback()

		entry, err := service.Credit(campaignID, donationID, 5000)
		assert.NoError(t, err)
		assert.Equal(t, "tx-existing", entry.TransactionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("campaign not found", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT transaction_id, campaign_id, donation_id, type, amount, platform_fee, processing_fee, net_amount, status").
			WithArgs(donationID).
			WillReturnError(sql.ErrNoRows)

		mock.ExpectQuery("SELECT id, current_amount, available_balance, paid_out, version FROM campaigns WHERE id = \\$1 FOR UPDATE").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		mock.ExpectRollback()

		_, err := service.Credit("missing", donationID, 5000)
		assert.ErrorIs(t, err, ErrCampaignNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid amount", func(t *testing.T) {
		_, err := service.Credit(campaignID, donationID, 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("donation swallowed by fees rejected before any write", func(t *testing.T) {
		// A 1 cent gross nets to -29 under the default schedule; crediting
		// it would commit a negative available_balance. No SQL runs at all.
		_, err := service.Credit(campaignID, "don-tiny", 1)
		assert.ErrorIs(t, err, ErrAmountBelowFees)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("optimistic lock failure", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT transaction_id, campaign_id, donation_id, type, amount, platform_fee, processing_fee, net_amount, status").
			WithArgs(donationID).
			WillReturnError(sql.ErrNoRows)

		mock.ExpectQuery("SELECT id, current_amount, available_balance, paid_out, version FROM campaigns WHERE id = \\$1 FOR UPDATE").
			WithArgs(campaignID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "current_amount", "available_balance", "paid_out", "version"}).
				AddRow(campaignID, 0, 0, 0, 1))

		mock.ExpectExec("UPDATE campaigns SET current_amount = \\$1, available_balance = \\$2, paid_out = \\$3, version = version \\+ 1").
			WithArgs(int64(5000), int64(4575), int64(0), sqlmock.AnyArg(), campaignID, 1).
			WillReturnResult(sqlmock.NewResult(1, 0)) // no rows affected

		mock.ExpectRollback()

		_, err := service.Credit(campaignID, donationID, 5000)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "optimistic lock failed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_Reserve(t *testing.T) {
	service, mock, db := newLedgerForTest(t)
	defer db.Close()

	payout := &models.Payout{
		ID:            "pay1",
		CampaignID:    "camp1",
		Amount:        4575,
		PlatformFee:   229,
		ProcessingFee: 0,
		NetAmount:     4346,
		PaymentMethod: models.PayoutMethodStripeConnect,
		Destination:   "acct_123",
	}

	t.Run("successful reservation", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id, current_amount, available_balance, paid_out, version FROM campaigns WHERE id = \\$1 FOR UPDATE").
			WithArgs(payout.CampaignID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "current_amount", "available_balance", "paid_out", "version"}).
				AddRow(payout.CampaignID, 5000, 4575, 0, 2))

		mock.ExpectExec("UPDATE campaigns SET current_amount = \\$1, available_balance = \\$2, paid_out = \\$3, version = version \\+ 1").
			WithArgs(int64(5000), int64(0), int64(0), sqlmock.AnyArg(), payout.CampaignID, 2).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("INSERT INTO payouts").
			WithArgs(payout.ID, payout.CampaignID, payout.Amount, payout.PlatformFee, payout.ProcessingFee,
				payout.NetAmount, models.PayoutStatusPending, payout.PaymentMethod, payout.Destination, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(sqlmock.AnyArg(), payout.CampaignID, "", payout.ID, models.TransactionTypePayout,
				payout.Amount, payout.PlatformFee, payout.ProcessingFee, payout.NetAmount,
				models.TransactionStatusProcessing, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectCommit()

		err := service.Reserve(payout)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient balance", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id, current_amount, available_balance, paid_out, version FROM campaigns WHERE id = \\$1 FOR UPDATE").
			WithArgs(payout.CampaignID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "current_amount", "available_balance", "paid_out", "version"}).
				AddRow(payout.CampaignID, 5000, 1000, 0, 2))

		mock.ExpectRollback()

		err := service.Reserve(payout)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_Reverse(t *testing.T) {
	service, mock, db := newLedgerForTest(t)
	defer db.Close()

	payoutID := "pay1"
	campaignID := "camp1"

	t.Run("reversal restores reserved amount exactly", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id, campaign_id, amount, net_amount, status FROM payouts WHERE id = \\$1 FOR UPDATE").
			WithArgs(payoutID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "campaign_id", "amount", "net_amount", "status"}).
				AddRow(payoutID, campaignID, 4575, 4346, models.PayoutStatusProcessing))

		mock.ExpectQuery("SELECT id, current_amount, available_balance, paid_out, version FROM campaigns WHERE id = \\$1 FOR UPDATE").
			WithArgs(campaignID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "current_amount", "available_balance", "paid_out", "version"}).
				AddRow(campaignID, 5000, 0, 0, 3))

		mock.ExpectExec("UPDATE campaigns SET current_amount = \\$1, available_balance = \\$2, paid_out = \\$3, version = version \\+ 1").
			WithArgs(int64(5000), int64(4575), int64(0), sqlmock.AnyArg(), campaignID, 3).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("UPDATE payouts SET status = \\$1, failure_reason = \\$2").
			WithArgs(models.PayoutStatusFailed, "card declined", sqlmock.AnyArg(), payoutID).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("UPDATE transactions SET status = \\$1").
			WithArgs(models.TransactionStatusFailed, sqlmock.AnyArg(), payoutID).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectCommit()

		err := service.Reverse(payoutID, "card declined")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already failed payout is a no-op", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id, campaign_id, amount, net_amount, status FROM payouts WHERE id = \\$1 FOR UPDATE").
			WithArgs(payoutID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "campaign_id", "amount", "net_amount", "status"}).
				AddRow(payoutID, campaignID, 4575, 4346, models.PayoutStatusFailed))

		mock.ExpectRollback()

		err := service.Reverse(payoutID, "card declined")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("payout not found", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id, campaign_id, amount, net_amount, status FROM payouts WHERE id = \\$1 FOR UPDATE").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		mock.ExpectRollback()

		err := service.Reverse("missing", "whatever")
		assert.ErrorIs(t, err, ErrPayoutNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_Finalize(t *testing.T) {
	service, mock, db := newLedgerForTest(t)
	defer db.Close()

	payoutID := "pay1"
	campaignID := "camp1"

	t.Run("finalize bumps paid_out only", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id, campaign_id, amount, net_amount, status FROM payouts WHERE id = \\$1 FOR UPDATE").
			WithArgs(payoutID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "campaign_id", "amount", "net_amount", "status"}).
				AddRow(payoutID, campaignID, 4575, 4346, models.PayoutStatusProcessing))

		mock.ExpectQuery("SELECT id, current_amount, available_balance, paid_out, version FROM campaigns WHERE id = \\$1 FOR UPDATE").
			WithArgs(campaignID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "current_amount", "available_balance", "paid_out", "version"}).
				AddRow(campaignID, 5000, 0, 0, 3))

		// available balance untouched, paid_out += net
		mock.ExpectExec("UPDATE campaigns SET current_amount = \\$1, available_balance = \\$2, paid_out = \\$3, version = version \\+ 1").
			WithArgs(int64(5000), int64(0), int64(4346), sqlmock.AnyArg(), campaignID, 3).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("UPDATE payouts SET status = \\$1, completed_at = \\$2").
			WithArgs(models.PayoutStatusCompleted, sqlmock.AnyArg(), payoutID).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("UPDATE transactions SET status = \\$1").
			WithArgs(models.TransactionStatusCompleted, sqlmock.AnyArg(), payoutID).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectCommit()

		err := service.Finalize(payoutID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already completed payout is a no-op", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id, campaign_id, amount, net_amount, status FROM payouts WHERE id = \\$1 FOR UPDATE").
			WithArgs(payoutID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "campaign_id", "amount", "net_amount", "status"}).
				AddRow(payoutID, campaignID, 4575, 4346, models.PayoutStatusCompleted))

		mock.ExpectRollback()

		err := service.Finalize(payoutID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reversed payout flags for reconciliation instead of finalizing", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("SELECT id, campaign_id, amount, net_amount, status FROM payouts WHERE id = \\$1 FOR UPDATE").
			WithArgs(payoutID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "campaign_id", "amount", "net_amount", "status"}).
				AddRow(payoutID, campaignID, 4575, 4346, models.PayoutStatusFailed))

		mock.ExpectRollback()

		err := service.Finalize(payoutID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_CampaignBalance(t *testing.T) {
	service, mock, db := newLedgerForTest(t)
	defer db.Close()

	t.Run("balance snapshot with payout eligibility", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, available_balance, paid_out, current_amount FROM campaigns").
			WithArgs("camp1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "available_balance", "paid_out", "current_amount"}).
				AddRow("camp1", 4575, 1000, 6000))

		bal, err := service.CampaignBalance("camp1", 2500)
		assert.NoError(t, err)
		assert.Equal(t, int64(4575), bal.AvailableBalance)
		assert.Equal(t, int64(1000), bal.PaidOut)
		assert.True(t, bal.CanPayout)
	})

	t.Run("below minimum cannot payout", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, available_balance, paid_out, current_amount FROM campaigns").
			WithArgs("camp1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "available_balance", "paid_out", "current_amount"}).
				AddRow("camp1", 1200, 0, 1500))

		bal, err := service.CampaignBalance("camp1", 2500)
		assert.NoError(t, err)
		assert.False(t, bal.CanPayout)
	})

	t.Run("unknown campaign", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, available_balance, paid_out, current_amount FROM campaigns").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := service.CampaignBalance("missing", 2500)
		assert.ErrorIs(t, err, ErrCampaignNotFound)
	})
}
