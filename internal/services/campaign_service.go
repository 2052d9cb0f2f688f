package services

import (
	"bytes"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/givehub/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// CampaignService manages campaign records and share codes. Balance
// mutations never happen here; those belong to the ledger.
type CampaignService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *ValidationHelper
	baseURL   string // public URL prefix embedded in donation share links
}

func NewCampaignService(db *sql.DB, rdb *redis.Client, baseURL string) *CampaignService {
	return &CampaignService{
		db:        db,
		redis:     rdb,
		validator: NewValidationHelper(),
		baseURL:   baseURL,
	}
}

// CampaignRequest is the payload for creating a campaign.
type CampaignRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=120"`
	Description string `json:"description" validate:"max=5000"`
	GoalAmount  int64  `json:"goalAmount" validate:"required,gt=0"` // minor units
	Currency    string `json:"currency" validate:"required,len=3"`
}

// PayoutDestinationRequest configures where payouts for a campaign go.
type PayoutDestinationRequest struct {
	PayoutMethod string `json:"payoutMethod" validate:"required,oneof=STRIPE_CONNECT BANK_TRANSFER PAYPAL CHECK"`
	Destination  string `json:"destination" validate:"required,min=3,max=128"`
}

// CreateCampaign creates a new fundraising campaign
// @Summary Create campaign
// @Description Create a new fundraising campaign owned by the authenticated user
// @Tags campaigns
// @Accept json
// @Produce json
// @Param campaign body CampaignRequest true "Campaign data"
// @Success 201 {object} models.Campaign
// @Failure 400 {object} ErrorResponse
// @Router /campaigns [post]
func (cs *CampaignService) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req CampaignRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := cs.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	ownerID := 0
	if userID, ok := r.Context().Value("userID").(string); ok {
		ownerID, _ = strconv.Atoi(userID)
	}
	if ownerID == 0 {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	campaign := &models.Campaign{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		GoalAmount:  req.GoalAmount,
		Currency:    req.Currency,
		Status:      models.CampaignStatusActive,
		Version:     1,
	}

	_, err := cs.db.Exec(`
		INSERT INTO campaigns (id, owner_id, title, description, goal_amount, currency,
			current_amount, available_balance, paid_out, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 0, $7, $8, $9, $9)`,
		campaign.ID, campaign.OwnerID, campaign.Title, campaign.Description,
		campaign.GoalAmount, campaign.Currency, campaign.Status, campaign.Version, time.Now())
	if err != nil {
		log.Printf("[CAMPAIGN] Failed to create campaign: %v", err)
		http.Error(w, "Failed to create campaign", http.StatusInternalServerError)
		return
	}

	log.Printf("[CAMPAIGN] Created campaign %s by user %d, goal %d", campaign.ID, ownerID, campaign.GoalAmount)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(campaign)
}

// GetCampaign retrieves a campaign by id
// @Summary Get campaign
// @Description Get a campaign's public details
// @Tags campaigns
// @Produce json
// @Param campaignId path string true "Campaign ID"
// @Success 200 {object} models.Campaign
// @Failure 404 {object} map[string]string
// @Router /campaigns/{campaignId} [get]
func (cs *CampaignService) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignId")

	campaign, err := cs.fetchCampaign(campaignID)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Campaign not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to fetch campaign", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaign)
}

// ListCampaigns lists active campaigns
// @Summary List campaigns
// @Description List active campaigns, most recently created first
// @Tags campaigns
// @Produce json
// @Param limit query int false "Number of campaigns to return (default: 20, max: 100)"
// @Success 200 {object} object{campaigns=[]models.Campaign,count=int}
// @Failure 500 {object} map[string]string
// @Router /campaigns [get]
func (cs *CampaignService) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	rows, err := cs.db.Query(`
		SELECT id, owner_id, title, description, goal_amount, currency, current_amount, status, created_at
		FROM campaigns
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2`, models.CampaignStatusActive, limit)
	if err != nil {
		http.Error(w, "Failed to fetch campaigns", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Description, &c.GoalAmount,
			&c.Currency, &c.CurrentAmount, &c.Status, &c.CreatedAt); err != nil {
			http.Error(w, "Failed to read campaigns", http.StatusInternalServerError)
			return
		}
		campaigns = append(campaigns, c)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"campaigns": campaigns,
		"count":     len(campaigns),
	})
}

// SetPayoutDestination configures the campaign's payout method and destination
// @Summary Set payout destination
// @Description Configure where payouts for this campaign are sent (owner only)
// @Tags campaigns
// @Accept json
// @Produce json
// @Param campaignId path string true "Campaign ID"
// @Param destination body PayoutDestinationRequest true "Payout destination"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} map[string]string
// @Router /campaigns/{campaignId}/payout-destination [put]
func (cs *CampaignService) SetPayoutDestination(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignId")

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req PayoutDestinationRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := cs.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	requesterID := 0
	if userID, ok := r.Context().Value("userID").(string); ok {
		requesterID, _ = strconv.Atoi(userID)
	}

	var ownerID int
	if err := cs.db.QueryRow(`SELECT owner_id FROM campaigns WHERE id = $1`, campaignID).Scan(&ownerID); err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Campaign not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to fetch campaign", http.StatusInternalServerError)
		}
		return
	}
	if ownerID != requesterID {
		http.Error(w, "Only the campaign owner can configure payouts", http.StatusForbidden)
		return
	}

	if _, err := cs.db.Exec(`
		UPDATE campaigns SET payout_method = $1, payout_destination = $2, updated_at = $3 WHERE id = $4`,
		req.PayoutMethod, req.Destination, time.Now(), campaignID); err != nil {
		log.Printf("[CAMPAIGN] Failed to set payout destination for %s: %v", campaignID, err)
		http.Error(w, "Failed to update payout destination", http.StatusInternalServerError)
		return
	}

	log.Printf("[CAMPAIGN] Payout destination updated for campaign %s, method %s", campaignID, req.PayoutMethod)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
}

// GenerateShareCode generates a QR donation link for a campaign
// @Summary Generate share QR code
// @Description Generate a scannable QR code linking to the campaign's donation page
// @Tags campaigns
// @Produce json
// @Param campaignId path string true "Campaign ID"
// @Success 200 {object} object{shareCode=string,qrImage=string,url=string}
// @Failure 404 {object} map[string]string
// @Router /campaigns/{campaignId}/share [post]
func (cs *CampaignService) GenerateShareCode(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignId")

	var status string
	if err := cs.db.QueryRow(`SELECT status FROM campaigns WHERE id = $1`, campaignID).Scan(&status); err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Campaign not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to fetch campaign", http.StatusInternalServerError)
		}
		return
	}

	shareCode := cs.generateNonce()
	shareURL := fmt.Sprintf("%s/c/%s", cs.baseURL, shareCode)

	if cs.redis != nil {
		key := fmt.Sprintf("share:%s", shareCode)
		if err := cs.redis.Set(r.Context(), key, campaignID, 30*24*time.Hour).Err(); err != nil {
			log.Printf("[CAMPAIGN] Failed to store share code for %s: %v", campaignID, err)
			http.Error(w, "Failed to generate share code", http.StatusInternalServerError)
			return
		}
	}

	qr, err := qrcode.New(shareURL, qrcode.Medium)
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		http.Error(w, "Failed to encode QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"shareCode": shareCode,
		"qrImage":   base64.StdEncoding.EncodeToString(buf.Bytes()),
		"url":       shareURL,
	})
}

// ResolveShareCode redirects a scanned share code to its campaign
// @Summary Resolve share code
// @Description Resolve a share code to its campaign id
// @Tags campaigns
// @Produce json
// @Param code path string true "Share code"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /c/{code} [get]
func (cs *CampaignService) ResolveShareCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if cs.redis == nil {
		http.Error(w, "Share codes unavailable", http.StatusServiceUnavailable)
		return
	}

	campaignID, err := cs.redis.Get(r.Context(), fmt.Sprintf("share:%s", code)).Result()
	if err == redis.Nil {
		http.Error(w, "Invalid or expired share code", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to resolve share code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"campaignId": campaignID})
}

func (cs *CampaignService) fetchCampaign(campaignID string) (*models.Campaign, error) {
	var c models.Campaign
	var method, destination sql.NullString
	err := cs.db.QueryRow(`
		SELECT id, owner_id, title, description, goal_amount, currency, current_amount,
			available_balance, paid_out, payout_method, payout_destination, status, version, created_at, updated_at
		FROM campaigns
		WHERE id = $1`, campaignID).
		Scan(&c.ID, &c.OwnerID, &c.Title, &c.Description, &c.GoalAmount, &c.Currency,
			&c.CurrentAmount, &c.AvailableBalance, &c.PaidOut, &method, &destination,
			&c.Status, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.PayoutMethod = method.String
	c.PayoutDestination = destination.String
	return &c, nil
}

func (cs *CampaignService) generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
