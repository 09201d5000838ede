package ingestion

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dossier/recouvrement/internal/domain"
	"github.com/dossier/recouvrement/internal/reconciliation"
)

// StatementLine is one payment read from a statement file.
type StatementLine struct {
	Line      int
	CaseID    string
	Amount    decimal.Decimal
	Date      time.Time
	Mode      string
	Reference string
	Comment   string
	// Err is set when the line could not be parsed.
	Err error
}

// LineResult reports what happened to one statement line.
type LineResult struct {
	Line      int             `json:"line"`
	CaseID    string          `json:"case_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	PaymentID string          `json:"payment_id,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	// CaseClosed is set when this line settled the case.
	CaseClosed bool `json:"case_closed,omitempty"`
}

const (
	LineAccepted = "accepted"
	LineRejected = "rejected"
	// LineSkipped marks a line whose payment was applied by an earlier,
	// interrupted import of the same file.
	LineSkipped = "already-applied"

	// AlreadyIngested is the batch id reported for a file seen before.
	AlreadyIngested = "already-ingested"
)

// ImportResult is returned from a statement import.
type ImportResult struct {
	BatchID  string       `json:"batch_id"`
	BatchRef string       `json:"batch_ref,omitempty"`
	Format   string       `json:"format,omitempty"`
	Lines    int          `json:"lines"`
	Accepted int          `json:"accepted"`
	Rejected int          `json:"rejected"`
	Skipped  int          `json:"skipped,omitempty"`
	Results  []LineResult `json:"results,omitempty"`
}

// PaymentRecorder applies a single payment to the ledger.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, in reconciliation.RecordPaymentInput) (*reconciliation.Receipt, error)
}

// BatchStore keeps one row per imported statement, keyed by file hash.
type BatchStore interface {
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	Insert(ctx context.Context, b *domain.ImportBatch) error
	UpdateCounts(ctx context.Context, b *domain.ImportBatch) error
	Delete(ctx context.Context, id string) error
}

// Service imports bank and mobile-money payment statements.
type Service struct {
	batches  BatchStore
	recorder PaymentRecorder
}

func NewService(batches BatchStore, recorder PaymentRecorder) *Service {
	return &Service{batches: batches, recorder: recorder}
}

// ImportStatement parses a statement file and records each line as a payment.
// Every line goes through the reconciliation rule in its own transaction, so
// one overpaying line is rejected without affecting the others.
//
// A storage failure or a cancelled context aborts the import and releases
// the file hash. Each payment carries its file hash and line number as
// source, so importing the file again skips the lines already applied.
//
// format must be one of: csv, psv, json
func (s *Service) ImportStatement(ctx context.Context, data []byte, format, actorID string) (*ImportResult, error) {
	if actorID == "" {
		return nil, &domain.ValidationError{Field: "actor", Reason: "is required"}
	}

	hash := fmt.Sprintf("%x", sha256.Sum256(data))
	exists, err := s.batches.ExistsByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("check hash: %w", err)
	}
	if exists {
		log.Printf("[ingestion] Statement %s already ingested, skipping", hash[:12])
		return &ImportResult{BatchID: AlreadyIngested}, nil
	}

	var lines []StatementLine
	var batchRef string

	switch format {
	case "csv":
		lines, err = ParseStatementCSV(data, ',')
	case "psv":
		lines, err = ParseStatementCSV(data, '|')
	case "json":
		lines, batchRef, err = ParseStatementJSON(data)
	default:
		return nil, &domain.ValidationError{Field: "format", Reason: fmt.Sprintf("unsupported format %q", format)}
	}
	if err != nil {
		return nil, &domain.ValidationError{Field: "file", Reason: fmt.Sprintf("parse %s: %v", format, err)}
	}

	// The hash row is claimed before any payment is written; the check above
	// does not stop two concurrent uploads of one file.
	batch := &domain.ImportBatch{
		ID:         uuid.NewString(),
		Format:     format,
		BatchRef:   batchRef,
		FileHash:   hash,
		LineCount:  len(lines),
		ImportedBy: actorID,
	}
	if batch.BatchRef == "" {
		batch.BatchRef = fmt.Sprintf("BATCH-%d", time.Now().UnixNano())
	}
	if err := s.batches.Insert(ctx, batch); err != nil {
		if errors.Is(err, domain.ErrAlreadyImported) {
			log.Printf("[ingestion] Statement %s claimed by a concurrent import, skipping", hash[:12])
			return &ImportResult{BatchID: AlreadyIngested}, nil
		}
		return nil, fmt.Errorf("insert batch: %w", err)
	}

	result := &ImportResult{
		BatchID:  batch.ID,
		BatchRef: batch.BatchRef,
		Format:   format,
		Lines:    len(lines),
		Results:  make([]LineResult, 0, len(lines)),
	}

	for _, line := range lines {
		lr, err := s.applyLine(ctx, line, actorID, hash)
		if err != nil {
			s.release(ctx, batch)
			return nil, fmt.Errorf("import %s aborted at line %d after %d accepted lines, the file may be imported again: %w",
				batch.BatchRef, line.Line, result.Accepted, err)
		}
		switch lr.Status {
		case LineAccepted:
			result.Accepted++
		case LineSkipped:
			result.Skipped++
		default:
			result.Rejected++
		}
		result.Results = append(result.Results, lr)
	}

	// Lines applied by an earlier attempt count as accepted for the batch.
	batch.Accepted = result.Accepted + result.Skipped
	batch.Rejected = result.Rejected
	if err := s.batches.UpdateCounts(ctx, batch); err != nil {
		log.Printf("[ingestion] WARNING: could not store counts for batch %s: %v", batch.ID, err)
	}

	log.Printf("[ingestion] Imported %s statement %s: %d lines, %d accepted, %d rejected, %d already applied",
		format, batch.BatchRef, result.Lines, result.Accepted, result.Rejected, result.Skipped)

	return result, nil
}

// applyLine records one statement line. A returned error means the line was
// not applied and may succeed on another attempt; every other outcome is in
// the LineResult.
func (s *Service) applyLine(ctx context.Context, line StatementLine, actorID, fileHash string) (LineResult, error) {
	lr := LineResult{Line: line.Line, CaseID: line.CaseID, Amount: line.Amount}
	if err := ctx.Err(); err != nil {
		return lr, err
	}
	if line.Err != nil {
		lr.Status = LineRejected
		lr.Reason = line.Err.Error()
		return lr, nil
	}
	if line.CaseID == "" {
		lr.Status = LineRejected
		lr.Reason = "case_id is required"
		return lr, nil
	}

	rcpt, err := s.recorder.RecordPayment(ctx, reconciliation.RecordPaymentInput{
		CaseID:    line.CaseID,
		Amount:    line.Amount,
		Date:      line.Date,
		Mode:      domain.PaymentMode(line.Mode),
		Reference: line.Reference,
		Comment:   line.Comment,
		ActorID:   actorID,
		Source:    fmt.Sprintf("import:%s:%d", fileHash, line.Line),
	})

	var dup *domain.DuplicateSourceError
	switch {
	case err == nil:
		lr.Status = LineAccepted
		lr.PaymentID = rcpt.Payment.ID
		lr.CaseClosed = rcpt.Closed
	case errors.As(err, &dup):
		lr.Status = LineSkipped
		lr.PaymentID = dup.PaymentID
	case errors.Is(err, domain.ErrStorage):
		return lr, err
	case ctx.Err() != nil:
		return lr, ctx.Err()
	default:
		lr.Status = LineRejected
		lr.Reason = err.Error()
	}
	return lr, nil
}

// release drops the batch row of an aborted import. It runs even when ctx
// was cancelled, since the abort may have been caused by the cancellation.
func (s *Service) release(ctx context.Context, batch *domain.ImportBatch) {
	if err := s.batches.Delete(context.WithoutCancel(ctx), batch.ID); err != nil {
		log.Printf("[ingestion] WARNING: could not release batch %s, its file cannot be re-imported: %v", batch.ID, err)
		return
	}
	log.Printf("[ingestion] Released batch %s after an aborted import", batch.ID)
}
