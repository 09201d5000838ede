package ingestion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// statementFile is the top-level JSON statement structure.
type statementFile struct {
	BatchID  string           `json:"batch_id"`
	Payments []statementEntry `json:"payments"`
}

type statementEntry struct {
	CaseID    string          `json:"case_id"`
	Amount    decimal.Decimal `json:"amount"`
	Date      string          `json:"date"`
	Mode      string          `json:"mode"`
	Reference string          `json:"reference"`
	Comment   string          `json:"comment"`
}

// ParseStatementJSON parses a JSON payment statement and returns its lines
// together with the batch id announced by the sender.
func ParseStatementJSON(data []byte) ([]StatementLine, string, error) {
	var file statementFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, "", fmt.Errorf("unmarshal: %w", err)
	}

	lines := make([]StatementLine, 0, len(file.Payments))
	for i, entry := range file.Payments {
		line := StatementLine{
			Line:      i + 1,
			CaseID:    entry.CaseID,
			Amount:    entry.Amount,
			Mode:      entry.Mode,
			Reference: entry.Reference,
			Comment:   entry.Comment,
		}
		date, err := parseStatementDate(entry.Date)
		if err != nil {
			line.Err = fmt.Errorf("date: %w", err)
		}
		line.Date = date
		lines = append(lines, line)
	}

	return lines, file.BatchID, nil
}

// parseStatementDate accepts a calendar date or a full RFC 3339 timestamp.
func parseStatementDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised date %q", s)
	}
	return ts.UTC(), nil
}
