package services

import (
	"database/sql"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/givehub/backend/internal/config"
	"github.com/givehub/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
)

var ErrInvalidDestination = errors.New("destination must be in routing:account form")

// DisbursementService builds ISO 20022 pacs.008 credit transfer
// instructions for bank-transfer payouts. Connect-style payouts settle
// through the card processor; bank transfers go through the manual
// disbursement desk, which consumes these instructions.
type DisbursementService struct {
	db    *sql.DB
	banks *BankService
	cfg   *config.PayoutConfig
}

func NewDisbursementService(db *sql.DB, banks *BankService, cfg *config.PayoutConfig) *DisbursementService {
	return &DisbursementService{
		db:    db,
		banks: banks,
		cfg:   cfg,
	}
}

// GetDisbursementInstruction produces the pacs.008 instruction for a payout
// @Summary Get disbursement instruction
// @Description Build the ISO 20022 pacs.008 XML instruction for a bank-transfer payout
// @Tags disbursements
// @Produce json
// @Param payoutId path string true "Payout ID"
// @Success 200 {object} object{status=string,messageType=string,xml=string}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /payouts/{payoutId}/instruction [get]
func (ds *DisbursementService) GetDisbursementInstruction(w http.ResponseWriter, r *http.Request) {
	payoutID := chi.URLParam(r, "payoutId")

	payout, err := ds.fetchPayout(payoutID)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Payout not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to fetch payout", http.StatusInternalServerError)
		}
		return
	}

	if payout.PaymentMethod != models.PayoutMethodBankTransfer {
		http.Error(w, "Payout is not a bank transfer", http.StatusConflict)
		return
	}
	if payout.Status != models.PayoutStatusProcessing && payout.Status != models.PayoutStatusPending {
		http.Error(w, fmt.Sprintf("Payout is %s, no instruction to issue", payout.Status), http.StatusConflict)
		return
	}

	doc, err := ds.BuildPacs008(payout)
	if err != nil {
		log.Printf("[DISBURSEMENT] Failed to build instruction for payout %s: %v", payoutID, err)
		SendErrorResponse(w, err.Error(), http.StatusUnprocessableEntity, nil)
		return
	}

	xmlData, err := ds.ConvertToXML(doc)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "generated",
		"messageType": "pacs.008.001.08",
		"xml":         xmlData,
	})
}

// BuildPacs008 creates a pacs.008 FIToFICustomerCreditTransfer message
// instructing the payout's net amount to the owner's bank account. The
// payout destination is "routing:account".
func (ds *DisbursementService) BuildPacs008(payout *models.Payout) (*pacs_v08.FIToFICustomerCreditTransferV08, error) {
	routing, account, err := splitDestination(payout.Destination)
	if err != nil {
		return nil, err
	}

	creditorAgent := pacs_v08.BranchAndFinancialInstitutionIdentification6{
		FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
			ClrSysMmbId: &pacs_v08.ClearingSystemMemberIdentification2{
				MmbId: common.Max35Text(routing),
			},
		},
	}
	if bic := ds.banks.LookupBIC(routing); bic != "" {
		creditorAgent.FinInstnId.BICFI = &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(bic)}[0]
	}

	msgID := uuid.New().String()
	now := time.Now()
	settlementDate := now
	amount := float64(payout.NetAmount) / 100

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:   common.Max35Text(msgID),
			CreDtTm: common.ISODateTime(now),
			NbOfTxs: "1",
			TtlIntrBkSttlmAmt: &pacs_v08.ActiveCurrencyAndAmount{
				Ccy:   common.ActiveCurrencyCode("USD"),
				Value: amount,
			},
			IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG",
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &[]common.Max35Text{common.Max35Text(payout.ID)}[0],
					EndToEndId: common.Max35Text(payout.ID),
					TxId:       &[]common.Max35Text{common.Max35Text(payout.ID)}[0],
				},
				IntrBkSttlmAmt: pacs_v08.ActiveCurrencyAndAmount{
					Ccy:   common.ActiveCurrencyCode("USD"),
					Value: amount,
				},
				IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
				ChrgBr:        "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(ds.cfg.DebtorBIC)}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text("GiveHub Platform Settlement")}[0],
				},
				CdtrAgt: creditorAgent,
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(fmt.Sprintf("Campaign %s owner", payout.CampaignID))}[0],
				},
				CdtrAcct: &pacs_v08.CashAccount38{
					Id: pacs_v08.AccountIdentification4Choice{
						Othr: pacs_v08.GenericAccountIdentification1{
							Id: common.Max34Text(account),
						},
					},
				},
			},
		},
	}

	return doc, nil
}

// ConvertToXML renders an ISO 20022 document as an XML string.
func (ds *DisbursementService) ConvertToXML(doc any) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}

func (ds *DisbursementService) fetchPayout(payoutID string) (*models.Payout, error) {
	var p models.Payout
	var destination sql.NullString
	err := ds.db.QueryRow(`
		SELECT id, campaign_id, amount, net_amount, status, payment_method, destination
		FROM payouts
		WHERE id = $1`, payoutID).
		Scan(&p.ID, &p.CampaignID, &p.Amount, &p.NetAmount, &p.Status, &p.PaymentMethod, &destination)
	if err != nil {
		return nil, err
	}
	p.Destination = destination.String
	return &p, nil
}

func splitDestination(destination string) (routing, account string, err error) {
	parts := strings.SplitN(destination, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidDestination
	}
	return parts[0], parts[1], nil
}
