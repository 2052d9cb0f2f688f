package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/givehub/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func newCampaignServiceForTest(t *testing.T) (*CampaignService, sqlmock.Sqlmock, redismock.ClientMock, *sql.DB) {
	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	rdb, redisMock := redismock.NewClientMock()
	service := NewCampaignService(db, rdb, "https://give.example.com")
	return service, sqlMock, redisMock, db
}

func campaignHTTPRequest(method, path, campaignID, userID string, body []byte) *http.Request {
	r := httptest.NewRequest(method, path, bytes.NewBuffer(body))
	rctx := chi.NewRouteContext()
	if campaignID != "" {
		rctx.URLParams.Add("campaignId", campaignID)
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	if userID != "" {
		ctx = context.WithValue(ctx, "userID", userID)
	}
	return r.WithContext(ctx)
}

func TestCampaignService_CreateCampaign(t *testing.T) {
	t.Run("successful creation", func(t *testing.T) {
		service, sqlMock, _, db := newCampaignServiceForTest(t)
		defer db.Close()

		sqlMock.ExpectExec("INSERT INTO campaigns").
			WillReturnResult(sqlmock.NewResult(1, 1))

		body, _ := json.Marshal(CampaignRequest{
			Title:      "Community Garden",
			GoalAmount: 500000,
			Currency:   "usd",
		})
		w := httptest.NewRecorder()
		service.CreateCampaign(w, campaignHTTPRequest("POST", "/campaigns", "", "7", body))

		assert.Equal(t, http.StatusCreated, w.Code)
		var campaign models.Campaign
		json.Unmarshal(w.Body.Bytes(), &campaign)
		assert.NotEmpty(t, campaign.ID)
		assert.Equal(t, 7, campaign.OwnerID)
		assert.Equal(t, models.CampaignStatusActive, campaign.Status)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("unauthenticated request rejected", func(t *testing.T) {
		service, _, _, db := newCampaignServiceForTest(t)
		defer db.Close()

		body, _ := json.Marshal(CampaignRequest{Title: "Community Garden", GoalAmount: 500000, Currency: "usd"})
		w := httptest.NewRecorder()
		service.CreateCampaign(w, campaignHTTPRequest("POST", "/campaigns", "", "", body))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("short title fails validation", func(t *testing.T) {
		service, _, _, db := newCampaignServiceForTest(t)
		defer db.Close()

		body, _ := json.Marshal(CampaignRequest{Title: "ab", GoalAmount: 500000, Currency: "usd"})
		w := httptest.NewRecorder()
		service.CreateCampaign(w, campaignHTTPRequest("POST", "/campaigns", "", "7", body))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCampaignService_SetPayoutDestination(t *testing.T) {
	t.Run("owner can set destination", func(t *testing.T) {
		service, sqlMock, _, db := newCampaignServiceForTest(t)
		defer db.Close()

		sqlMock.ExpectQuery("SELECT owner_id FROM campaigns").
			WithArgs("camp1").
			WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(7))
		sqlMock.ExpectExec("UPDATE campaigns SET payout_method = \\$1, payout_destination = \\$2").
			WithArgs(models.PayoutMethodStripeConnect, "acct_123", sqlmock.AnyArg(), "camp1").
			WillReturnResult(sqlmock.NewResult(1, 1))

		body, _ := json.Marshal(PayoutDestinationRequest{
			PayoutMethod: models.PayoutMethodStripeConnect,
			Destination:  "acct_123",
		})
		w := httptest.NewRecorder()
		service.SetPayoutDestination(w, campaignHTTPRequest("PUT", "/campaigns/camp1/payout-destination", "camp1", "7", body))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("non-owner forbidden", func(t *testing.T) {
		service, sqlMock, _, db := newCampaignServiceForTest(t)
		defer db.Close()

		sqlMock.ExpectQuery("SELECT owner_id FROM campaigns").
			WithArgs("camp1").
			WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(7))

		body, _ := json.Marshal(PayoutDestinationRequest{
			PayoutMethod: models.PayoutMethodBankTransfer,
			Destination:  "021000021:000123456789",
		})
		w := httptest.NewRecorder()
		service.SetPayoutDestination(w, campaignHTTPRequest("PUT", "/campaigns/camp1/payout-destination", "camp1", "99", body))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unsupported method rejected", func(t *testing.T) {
		service, _, _, db := newCampaignServiceForTest(t)
		defer db.Close()

		body, _ := json.Marshal(PayoutDestinationRequest{PayoutMethod: "WIRE_PIGEON", Destination: "x12"})
		w := httptest.NewRecorder()
		service.SetPayoutDestination(w, campaignHTTPRequest("PUT", "/campaigns/camp1/payout-destination", "camp1", "7", body))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCampaignService_ShareCodes(t *testing.T) {
	t.Run("generate emits QR and stores the code", func(t *testing.T) {
		service, sqlMock, redisMock, db := newCampaignServiceForTest(t)
		defer db.Close()

		sqlMock.ExpectQuery("SELECT status FROM campaigns").
			WithArgs("camp1").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.CampaignStatusActive))

		redisMock.Regexp().ExpectSet(`share:.+`, "camp1", 30*24*time.Hour).SetVal("OK")

		w := httptest.NewRecorder()
		service.GenerateShareCode(w, campaignHTTPRequest("POST", "/campaigns/camp1/share", "camp1", "7", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.NotEmpty(t, resp["shareCode"])
		assert.NotEmpty(t, resp["qrImage"])
		assert.Contains(t, resp["url"], "https://give.example.com/c/")
	})

	t.Run("resolve round trips to the campaign", func(t *testing.T) {
		service, _, redisMock, db := newCampaignServiceForTest(t)
		defer db.Close()

		redisMock.ExpectGet("share:abc123").SetVal("camp1")

		r := httptest.NewRequest("GET", "/c/abc123", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("code", "abc123")
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

		w := httptest.NewRecorder()
		service.ResolveShareCode(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "camp1")
	})

	t.Run("expired code not found", func(t *testing.T) {
		service, _, redisMock, db := newCampaignServiceForTest(t)
		defer db.Close()

		redisMock.ExpectGet("share:stale").RedisNil()

		r := httptest.NewRequest("GET", "/c/stale", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("code", "stale")
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

		w := httptest.NewRecorder()
		service.ResolveShareCode(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCampaignService_GetCampaign(t *testing.T) {
	service, sqlMock, _, db := newCampaignServiceForTest(t)
	defer db.Close()

	t.Run("existing campaign", func(t *testing.T) {
		now := time.Now()
		sqlMock.ExpectQuery("SELECT id, owner_id, title, description, goal_amount, currency, current_amount").
			WithArgs("camp1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "title", "description", "goal_amount", "currency",
				"current_amount", "available_balance", "paid_out", "payout_method", "payout_destination", "status", "version",
				"created_at", "updated_at"}).
				AddRow("camp1", 7, "Community Garden", "", 500000, "usd", 5000, 4575, 0, nil, nil,
					models.CampaignStatusActive, 2, now, now))

		w := httptest.NewRecorder()
		service.GetCampaign(w, campaignHTTPRequest("GET", "/campaigns/camp1", "camp1", "", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var campaign models.Campaign
		json.Unmarshal(w.Body.Bytes(), &campaign)
		assert.Equal(t, "camp1", campaign.ID)
		assert.Equal(t, int64(4575), campaign.AvailableBalance)
	})

	t.Run("unknown campaign", func(t *testing.T) {
		sqlMock.ExpectQuery("SELECT id, owner_id, title, description, goal_amount, currency, current_amount").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		w := httptest.NewRecorder()
		service.GetCampaign(w, campaignHTTPRequest("GET", "/campaigns/missing", "missing", "", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
