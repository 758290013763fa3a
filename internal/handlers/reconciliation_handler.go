package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/elentis/reconcile/internal/cardrail"
	mW "github.com/elentis/reconcile/internal/middleware"
	"github.com/elentis/reconcile/internal/models"
	"github.com/elentis/reconcile/internal/services"
)

const maxRequestBody = 1_048_576

// Reconciler is the facade surface the HTTP layer drives.
type Reconciler interface {
	IssueDepositTarget(ctx context.Context, accountID string, rail models.Rail) (*models.DepositBinding, error)
	CreateCardDeposit(ctx context.Context, accountID string, amount int64) (*cardrail.PaymentIntent, error)
	RequestWithdrawal(ctx context.Context, req services.WithdrawalRequest) (*services.WithdrawalReceipt, error)
	GetHistory(ctx context.Context, accountID string) ([]models.HistoryItem, error)
	GetBalance(ctx context.Context, accountID string) (models.Balances, error)
	IngestWebhook(ctx context.Context, rail models.Rail, body []byte, headers http.Header) (services.Ack, error)
	Decimals(rail models.Rail) int32
}

type ReconciliationHandler struct {
	service   Reconciler
	validator *services.ValidationHelper
	log       *logrus.Entry
}

func NewReconciliationHandler(service Reconciler) *ReconciliationHandler {
	return &ReconciliationHandler{
		service:   service,
		validator: services.NewValidationHelper(),
		log:       logrus.WithField("component", "http"),
	}
}

type DepositTargetResponse struct {
	Rail    models.Rail `json:"rail"`
	Address string      `json:"address"`
	Memo    string      `json:"memo,omitempty"`
	QRImage string      `json:"qrImage,omitempty"`
}

// IssueDepositTarget returns the caller's deposit target on a rail
// @Summary Issue deposit target
// @Description Returns the deposit address (asset rail) or customer id (card rail) bound to the account, minting one on first use
// @Tags Deposits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{rail=string} true "Deposit target request"
// @Success 200 {object} DepositTargetResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 502 {object} services.ErrorResponse
// @Router /deposit-targets [post]
func (h *ReconciliationHandler) IssueDepositTarget(w http.ResponseWriter, r *http.Request) {
	accountID, ok := mW.AccountID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Rail string `json:"rail" validate:"required,rail"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	binding, err := h.service.IssueDepositTarget(r.Context(), accountID, models.Rail(req.Rail))
	if err != nil {
		h.fail(w, err)
		return
	}

	resp := DepositTargetResponse{Rail: binding.Rail, Address: binding.Address, Memo: binding.Memo}
	if binding.Rail == models.RailAsset {
		img, err := services.RenderAddressQR(binding.Address, binding.Memo)
		if err != nil {
			h.log.WithError(err).Warn("failed to render deposit QR")
		}
		resp.QRImage = img
	}
	services.WriteJSON(w, http.StatusOK, resp)
}

// CreateCardDeposit starts a card payment into the caller's card balance
// @Summary Create card deposit
// @Tags Deposits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{amount=string} true "Decimal amount in the card currency"
// @Success 200 {object} cardrail.PaymentIntent
// @Failure 400 {object} services.ErrorResponse
// @Failure 502 {object} services.ErrorResponse
// @Router /card-deposits [post]
func (h *ReconciliationHandler) CreateCardDeposit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := mW.AccountID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Amount string `json:"amount" validate:"required,decimal_amount"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := models.ParseMinorUnits(req.Amount, h.service.Decimals(models.RailCard))
	if err != nil {
		h.fail(w, err)
		return
	}

	intent, err := h.service.CreateCardDeposit(r.Context(), accountID, amount)
	if err != nil {
		h.fail(w, err)
		return
	}
	services.WriteJSON(w, http.StatusOK, intent)
}

// RequestWithdrawal debits the caller and submits a withdrawal to the rail
// @Summary Request withdrawal
// @Description Debits amount plus fee and submits the withdrawal. The entry stays processing until the rail reports the outcome.
// @Tags Withdrawals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{rail=string,destination=string,memo=string,amount=string} true "Withdrawal request"
// @Success 202 {object} services.WithdrawalReceipt
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Failure 502 {object} services.ErrorResponse
// @Failure 504 {object} services.ErrorResponse
// @Router /withdrawals [post]
func (h *ReconciliationHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	accountID, ok := mW.AccountID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Rail        string `json:"rail" validate:"required,rail"`
		Destination string `json:"destination" validate:"required,max=128"`
		Memo        string `json:"memo" validate:"max=64"`
		Amount      string `json:"amount" validate:"required,decimal_amount"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	rail := models.Rail(req.Rail)
	amount, err := models.ParseMinorUnits(req.Amount, h.service.Decimals(rail))
	if err != nil {
		h.fail(w, err)
		return
	}

	receipt, err := h.service.RequestWithdrawal(r.Context(), services.WithdrawalRequest{
		AccountID:   accountID,
		Rail:        rail,
		Destination: req.Destination,
		Memo:        req.Memo,
		Amount:      amount,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	services.WriteJSON(w, http.StatusAccepted, receipt)
}

// GetHistory lists the caller's ledger entries, newest first
// @Summary Transaction history
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{items=[]models.HistoryItem}
// @Failure 401 {object} services.ErrorResponse
// @Router /history [get]
func (h *ReconciliationHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	accountID, ok := mW.AccountID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	items, err := h.service.GetHistory(r.Context(), accountID)
	if err != nil {
		h.fail(w, err)
		return
	}
	services.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GetBalance returns the caller's balance on each rail in minor units
// @Summary Balances
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Balances
// @Failure 401 {object} services.ErrorResponse
// @Router /balance [get]
func (h *ReconciliationHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := mW.AccountID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	balances, err := h.service.GetBalance(r.Context(), accountID)
	if err != nil {
		h.fail(w, err)
		return
	}
	services.WriteJSON(w, http.StatusOK, balances)
}

// decode reads a single JSON object into dst and validates it. It writes the
// error response itself and reports whether the handler should continue.
func (h *ReconciliationHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	if err := h.validator.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

func (h *ReconciliationHandler) fail(w http.ResponseWriter, err error) {
	status := services.StatusForError(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).Error("request failed")
	}
	services.SendErrorResponse(w, err.Error(), status, nil)
}
