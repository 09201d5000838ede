package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// statementColumns is the expected header of delimited statements.
var statementColumns = []string{"case_id", "amount", "date", "mode", "reference", "comment"}

// ParseStatementCSV parses a delimited payment statement. comma is ',' for
// plain CSV exports and '|' for the pipe-separated bank format.
//
// Expected header:
//
//	case_id,amount,date,mode,reference,comment
//
// Structural problems (missing header, unreadable rows) fail the whole file.
// A row whose values cannot be parsed is returned with Err set so the caller
// can reject that line alone.
func ParseStatementCSV(data []byte, comma rune) ([]StatementLine, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = comma
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 4 {
		return nil, fmt.Errorf("expected at least 4 columns, got %d", len(header))
	}
	for i, want := range statementColumns[:4] {
		if got := strings.ToLower(strings.TrimSpace(header[i])); got != want {
			return nil, fmt.Errorf("column %d: expected %q, got %q", i+1, want, got)
		}
	}

	var lines []StatementLine

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isBlank(row) {
			continue
		}

		lineNum, _ := reader.FieldPos(0)
		line := StatementLine{Line: lineNum}
		if len(row) < 4 {
			line.Err = fmt.Errorf("expected at least 4 columns, got %d", len(row))
			lines = append(lines, line)
			continue
		}

		line.CaseID = strings.TrimSpace(row[0])
		line.Mode = strings.TrimSpace(row[3])
		if len(row) > 4 {
			line.Reference = strings.TrimSpace(row[4])
		}
		if len(row) > 5 {
			line.Comment = strings.TrimSpace(row[5])
		}

		line.Amount, err = decimal.NewFromString(strings.TrimSpace(row[1]))
		if err != nil {
			line.Err = fmt.Errorf("amount: %w", err)
			lines = append(lines, line)
			continue
		}

		line.Date, err = parseStatementDate(strings.TrimSpace(row[2]))
		if err != nil {
			line.Err = fmt.Errorf("date: %w", err)
		}
		lines = append(lines, line)
	}

	return lines, nil
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
