package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ledger-exchange-go/internal/api"
	"ledger-exchange-go/internal/audit"
	"ledger-exchange-go/internal/models"
	"ledger-exchange-go/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReportSource exposes the latest background audit, if one is running.
type ReportSource interface {
	LastReport() (models.AuditReport, bool)
}

type Handlers struct {
	svc     *api.AccountService
	ledger  store.LedgerStore
	reports ReportSource
}

// NewHandlers wires the account service. ledger is used for on-demand audits
// when reports is nil or has not completed a pass yet.
func NewHandlers(svc *api.AccountService, ledger store.LedgerStore, reports ReportSource) *Handlers {
	return &Handlers{svc: svc, ledger: ledger, reports: reports}
}

type createAccountRequest struct {
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

type accountRef struct {
	Id int64 `json:"id"`
}

// transferRequest accepts both {fromAccountId,toAccountId,amount} and the
// nested {from:{id},to:{id},amount} form.
type transferRequest struct {
	FromAccountId *int64          `json:"fromAccountId"`
	ToAccountId   *int64          `json:"toAccountId"`
	From          *accountRef     `json:"from"`
	To            *accountRef     `json:"to"`
	Amount        decimal.Decimal `json:"amount"`
}

func (t transferRequest) toModel() (models.TransferRequest, bool) {
	var req models.TransferRequest
	switch {
	case t.FromAccountId != nil:
		req.FromAccountId = *t.FromAccountId
	case t.From != nil:
		req.FromAccountId = t.From.Id
	default:
		return req, false
	}
	switch {
	case t.ToAccountId != nil:
		req.ToAccountId = *t.ToAccountId
	case t.To != nil:
		req.ToAccountId = t.To.Id
	default:
		return req, false
	}
	req.Amount = t.Amount
	return req, true
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.HealthCheck(r.Context()); err != nil {
		zap.L().Error("Health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, failureBody("unhealthy"))
		return
	}
	writeJSON(w, http.StatusOK, models.Success("ok"))
}

func (h *Handlers) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeResult(w, http.StatusCreated, models.Failure(models.KindValidation, "Invalid request body. "+err.Error()))
		return
	}

	writeResult(w, http.StatusCreated, h.svc.InsertAccount(r.Context(), req.Name, req.Balance))
}

func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusOK, h.svc.GetAllAccounts(r.Context()))
}

func (h *Handlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeResult(w, http.StatusOK, models.Failure(models.KindValidation,
			fmt.Sprintf("Invalid Number. For input string: %q", raw)))
		return
	}

	writeResult(w, http.StatusOK, h.svc.GetAccount(r.Context(), id))
}

func (h *Handlers) PostTransfer(w http.ResponseWriter, r *http.Request) {
	var body transferRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeResult(w, http.StatusOK, models.Failure(models.KindValidation, "Invalid request body. "+err.Error()))
		return
	}
	req, ok := body.toModel()
	if !ok {
		writeResult(w, http.StatusOK, models.Failure(models.KindValidation, "Both source and destination accounts are required"))
		return
	}

	zap.L().Debug("Transfer requested",
		zap.String("request_id", r.Header.Get(RequestIdHeader)),
		zap.Stringer("request", req))
	writeResult(w, http.StatusOK, h.svc.Transfer(r.Context(), req))
}

func (h *Handlers) Audit(w http.ResponseWriter, r *http.Request) {
	if h.reports != nil {
		if report, ok := h.reports.LastReport(); ok {
			writeJSON(w, http.StatusOK, auditBody(report))
			return
		}
	}

	report, err := audit.Check(r.Context(), h.ledger)
	if err != nil {
		zap.L().Error("On-demand audit failed", zap.Error(err))
		writeResult(w, http.StatusOK, models.Failure(models.KindPersistence, models.MessageStorageError))
		return
	}
	writeJSON(w, http.StatusOK, auditBody(report))
}

type auditResponse struct {
	AccountCount     int         `json:"account_count"`
	Total            json.Number `json:"total"`
	NegativeAccounts []int64     `json:"negative_accounts,omitempty"`
	CheckedAt        string      `json:"checked_at"`
	Healthy          bool        `json:"healthy"`
}

func auditBody(report models.AuditReport) auditResponse {
	return auditResponse{
		AccountCount:     report.AccountCount,
		Total:            json.Number(report.Total.String()),
		NegativeAccounts: report.NegativeAccounts,
		CheckedAt:        report.CheckedAt.Format(time.RFC3339Nano),
		Healthy:          report.Healthy(),
	}
}

// MaxBodyBytes caps every request body the API reads.
const MaxBodyBytes = 64 << 10

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeResult maps the result kind onto a status; successCode is used for Ok results.
func writeResult(w http.ResponseWriter, successCode int, result models.Result) {
	writeJSON(w, StatusFor(result, successCode), result)
}

// StatusFor maps a Result onto an HTTP status code.
func StatusFor(result models.Result, successCode int) int {
	if result.Ok() {
		return successCode
	}
	switch result.Kind {
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func failureBody(message string) models.Result {
	return models.Failure(models.KindPersistence, message)
}
