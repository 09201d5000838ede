package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/dossier/recouvrement/internal/cases"
	"github.com/dossier/recouvrement/internal/domain"
	"github.com/dossier/recouvrement/internal/idempotency"
	"github.com/dossier/recouvrement/internal/ingestion"
	"github.com/dossier/recouvrement/internal/reconciliation"
	"github.com/dossier/recouvrement/internal/repository"
)

const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotentReplayHeader  = "Idempotent-Replay"
	maxBodyBytes            = 1 << 20
	maxStatementUploadBytes = 32 << 20
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	cases     *repository.CaseRepo
	payments  *repository.PaymentRepo
	caseSvc   *cases.Service
	recon     *reconciliation.Service
	ingestion *ingestion.Service
	idem      ReplayStore
}

// ReplayStore keeps the outcome of requests made with an Idempotency-Key.
type ReplayStore interface {
	Reserve(actor, key, fingerprint string) (*idempotency.Entry, bool, error)
	Complete(actor, key string, status int, body []byte) error
	Release(actor, key string) error
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the domain error kinds onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var over *domain.OverpaymentError
	switch {
	case errors.As(err, &over):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":             over.Error(),
			"case_id":           over.CaseID,
			"amount":            over.Amount,
			"remaining_balance": over.Remaining,
		})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("[api] internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error, the operation was not applied and may be retried")
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

func decodeBody(r *http.Request, dst any) error {
	return decodeJSON(r.Body, dst)
}

func decodeJSON(rd io.Reader, dst any) error {
	dec := json.NewDecoder(rd)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// paymentRequest is the body of payment create and update calls.
type paymentRequest struct {
	Amount    decimal.Decimal    `json:"amount"`
	Date      string             `json:"date"`
	Mode      domain.PaymentMode `json:"mode"`
	Reference string             `json:"reference"`
	Comment   string             `json:"comment"`
}

func (p paymentRequest) date() (time.Time, error) {
	if p.Date == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(domain.DateLayout, p.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be formatted YYYY-MM-DD")
	}
	return d, nil
}

// --- cases ---

type createCaseRequest struct {
	Reference    string          `json:"reference"`
	DebtorName   string          `json:"debtor_name"`
	CreditorName string          `json:"creditor_name"`
	TotalOwed    decimal.Decimal `json:"total_owed"`
	Currency     string          `json:"currency"`
}

func (h *Handlers) CreateCase(w http.ResponseWriter, r *http.Request) {
	var req createCaseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.caseSvc.OpenCase(r.Context(), cases.OpenCaseInput{
		Reference:    req.Reference,
		DebtorName:   req.DebtorName,
		CreditorName: req.CreditorName,
		TotalOwed:    req.TotalOwed,
		Currency:     req.Currency,
		ActorID:      actorFrom(r.Context()),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (h *Handlers) ListCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.CaseFilter{
		Status: strings.ToUpper(q.Get("status")),
		Search: q.Get("search"),
		Page:   parseIntDefault(q.Get("page"), 1),
		Limit:  parseIntDefault(q.Get("limit"), 50),
	}
	if filter.Status != "" && !domain.CaseStatus(filter.Status).Valid() {
		writeError(w, http.StatusBadRequest, "status must be IN_PROGRESS or CLOSED")
		return
	}

	list, total, err := h.cases.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []domain.CaseSummary{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cases": list,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

func (h *Handlers) GetCase(w http.ResponseWriter, r *http.Request) {
	summary, err := h.cases.GetSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// --- payments ---

func (h *Handlers) ListCasePayments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	summary, err := h.cases.GetSummary(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	payments, err := h.payments.ListForCase(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if payments == nil {
		payments = []domain.Payment{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"case_id":           summary.ID,
		"case_reference":    summary.Reference,
		"status":            summary.Status,
		"total_owed":        summary.TotalOwed,
		"total_paid":        summary.TotalPaid,
		"remaining_balance": summary.RemainingBalance,
		"payments":          payments,
	})
}

func (h *Handlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.payments.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if p == nil {
		writeDomainError(w, &domain.NotFoundError{Entity: "payment", ID: id})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RecordPayment applies a new payment to a case. When the request carries an
// Idempotency-Key the first successful response is stored and replayed for
// retries with the same key.
func (h *Handlers) RecordPayment(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "id")
	actor := actorFrom(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	var req paymentRequest
	if err := decodeJSON(bytes.NewReader(body), &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := req.date()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if key != "" && h.idem != nil {
		if h.replay(w, actor, key, fingerprint(r, body)) {
			return
		}
	}

	rcpt, err := h.recon.RecordPayment(r.Context(), reconciliation.RecordPaymentInput{
		CaseID:    caseID,
		Amount:    req.Amount,
		Date:      date,
		Mode:      req.Mode,
		Reference: req.Reference,
		Comment:   req.Comment,
		ActorID:   actor,
	})
	if err != nil {
		if key != "" && h.idem != nil {
			if rerr := h.idem.Release(actor, key); rerr != nil {
				log.Printf("[api] release idempotency key %q: %v", key, rerr)
			}
		}
		writeDomainError(w, err)
		return
	}

	out, err := json.Marshal(rcpt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if key != "" && h.idem != nil {
		h.complete(actor, key, http.StatusCreated, out)
	}

	w.WriteHeader(http.StatusCreated)
	w.Write(append(out, '\n'))
}

// replay reserves key or answers from a previous request with the same key.
// It reports whether the response has already been written.
func (h *Handlers) replay(w http.ResponseWriter, actor, key, fp string) bool {
	entry, reserved, err := h.idem.Reserve(actor, key, fp)
	if err != nil {
		log.Printf("[api] idempotency store: %v", err)
		writeError(w, http.StatusInternalServerError, "idempotency store unavailable")
		return true
	}
	if reserved {
		return false
	}

	switch {
	case entry.Fingerprint != fp:
		writeError(w, http.StatusUnprocessableEntity, IdempotencyKeyHeader+" was already used for a different request")
	case entry.Pending:
		writeError(w, http.StatusConflict, "a request with this "+IdempotencyKeyHeader+" is still in progress")
	default:
		log.Printf("[api] Replaying response for %s %q", actor, key)
		w.Header().Set(IdempotentReplayHeader, "true")
		w.WriteHeader(entry.Status)
		w.Write(append(entry.Body, '\n'))
	}
	return true
}

// complete stores the response for a reserved key. When it cannot be stored
// the key is released, so a retry is processed again instead of waiting on a
// reservation that never completes.
func (h *Handlers) complete(actor, key string, status int, body []byte) {
	err := h.idem.Complete(actor, key, status, body)
	if err == nil {
		return
	}
	log.Printf("[api] store idempotent response for %q: %v, retrying", key, err)
	if err = h.idem.Complete(actor, key, status, body); err == nil {
		return
	}
	log.Printf("[api] store idempotent response for %q: %v, releasing key", key, err)
	if err := h.idem.Release(actor, key); err != nil {
		log.Printf("[api] release idempotency key %q: %v", key, err)
	}
}

func fingerprint(r *http.Request, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(r.Method + " " + r.URL.Path + "\n"))
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}

func (h *Handlers) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := req.date()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rcpt, err := h.recon.UpdatePayment(r.Context(), reconciliation.UpdatePaymentInput{
		PaymentID: chi.URLParam(r, "id"),
		Amount:    req.Amount,
		Date:      date,
		Mode:      req.Mode,
		Reference: req.Reference,
		Comment:   req.Comment,
		ActorID:   actorFrom(r.Context()),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rcpt)
}

func (h *Handlers) DeletePayment(w http.ResponseWriter, r *http.Request) {
	rcpt, err := h.recon.DeletePayment(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rcpt)
}

// --- imports ---

func (h *Handlers) ImportStatement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxStatementUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	format := strings.ToLower(r.FormValue("format"))
	if format == "" {
		writeError(w, http.StatusBadRequest, "format is required")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read file: "+err.Error())
		return
	}

	result, err := h.ingestion.ImportStatement(r.Context(), data, format, actorFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// --- dashboard ---

func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cases.GetDashboardStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	byMode, err := h.payments.GetVolumeByMode(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	recoveryRate := decimal.Zero
	if stats.TotalOwed.IsPositive() {
		recoveryRate = stats.Collected.Div(stats.TotalOwed).Mul(decimal.NewFromInt(100)).Round(2)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cases": map[string]int{
			"total":       stats.Total,
			"in_progress": stats.InProgress,
			"closed":      stats.Closed,
		},
		"amounts": map[string]decimal.Decimal{
			"total_owed":  stats.TotalOwed,
			"collected":   stats.Collected,
			"outstanding": stats.Outstanding,
		},
		"recovery_rate_pct": recoveryRate,
		"by_mode":           byMode,
	})
}
