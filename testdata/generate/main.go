// Command generate writes demo collection cases and payment statements into
// testdata/. Output is deterministic for a given seed.
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dossier/recouvrement/internal/domain"
)

var debtors = []string{
	"Kouassi Yao", "Aminata Traoré", "Moussa Diop", "Fatou Ndiaye", "Koffi Mensah",
	"Awa Diallo", "Ibrahim Coulibaly", "Mariam Ouédraogo", "Seydou Keïta", "Adjoa Boateng",
	"Ousmane Sow", "Aïcha Camara", "Yaw Asante", "Salimata Konaté", "Cheikh Fall",
}

var creditors = []string{
	"SGBCI", "Ecobank Côte d'Ivoire", "Banque Atlantique", "Orange Finances Mobiles", "Bridge Bank Group",
}

func main() {
	rng := rand.New(rand.NewSource(42))
	baseDir := findTestdataDir()

	opened := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

	var cases []domain.Case
	for i := 1; i <= 30; i++ {
		// Amounts between 50 000 and 2 000 000 XOF, rounded to 5 000.
		owed := int64(10+rng.Intn(391)) * 5000
		createdAt := opened.AddDate(0, 0, rng.Intn(60)).Add(time.Duration(rng.Intn(8*60)) * time.Minute)

		cases = append(cases, domain.Case{
			ID:           fmt.Sprintf("CASE-%04d", i),
			Reference:    fmt.Sprintf("REC-2024-%04d", i),
			DebtorName:   debtors[rng.Intn(len(debtors))],
			CreditorName: creditors[rng.Intn(len(creditors))],
			TotalOwed:    decimal.NewFromInt(owed),
			Currency:     "XOF",
			Status:       domain.CaseInProgress,
			CreatedAt:    createdAt,
			UpdatedAt:    createdAt,
		})
	}

	writeJSONFile(filepath.Join(baseDir, "cases.json"), cases)
	fmt.Printf("Generated %d cases -> cases.json\n", len(cases))

	generateBankCSV(rng, cases, baseDir)
	generateMobileMoneyJSON(rng, cases, baseDir)

	fmt.Println("Test data generation complete.")
}

// generateBankCSV writes instalments for the first half of the cases. About
// one line in ten overshoots the remaining balance so the import reports
// rejections.
func generateBankCSV(rng *rand.Rand, cases []domain.Case, baseDir string) {
	dir := filepath.Join(baseDir, "statements")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		panic(err)
	}
	filePath := filepath.Join(dir, "statement_bank.csv")

	f, err := os.Create(filePath)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{"case_id", "amount", "date", "mode", "reference", "comment"})

	modes := []domain.PaymentMode{domain.ModeBankTransfer, domain.ModeCheck, domain.ModeCash}
	lines := 0
	for _, c := range cases[:len(cases)/2] {
		remaining := c.TotalOwed
		day := c.CreatedAt.AddDate(0, 0, 7)
		instalments := 1 + rng.Intn(3)
		for n := 0; n < instalments && remaining.IsPositive(); n++ {
			amount := remaining.Div(decimal.NewFromInt(int64(2 + rng.Intn(2)))).Round(-3)
			if rng.Float64() < 0.1 {
				amount = remaining.Add(decimal.NewFromInt(5000))
			} else {
				remaining = remaining.Sub(amount)
			}
			if !amount.IsPositive() {
				continue
			}
			lines++
			w.Write([]string{
				c.ID,
				amount.String(),
				day.Format(domain.DateLayout),
				string(modes[rng.Intn(len(modes))]),
				fmt.Sprintf("VIR-%06d", rng.Intn(1000000)),
				"",
			})
			day = day.AddDate(0, 0, 14+rng.Intn(14))
		}
	}

	fmt.Printf("Generated %d bank statement lines -> statements/statement_bank.csv\n", lines)
}

type mobileStatement struct {
	BatchID  string        `json:"batch_id"`
	Payments []mobileEntry `json:"payments"`
}

type mobileEntry struct {
	CaseID    string          `json:"case_id"`
	Amount    decimal.Decimal `json:"amount"`
	Date      string          `json:"date"`
	Mode      string          `json:"mode"`
	Reference string          `json:"reference"`
}

// generateMobileMoneyJSON settles a few of the remaining cases in full.
func generateMobileMoneyJSON(rng *rand.Rand, cases []domain.Case, baseDir string) {
	modes := []domain.PaymentMode{domain.ModeOrangeMoney, domain.ModeMTNMoney, domain.ModeMoovMoney, domain.ModeWave}

	stmt := mobileStatement{BatchID: "MM-2024-03-15"}
	for _, c := range cases[len(cases)/2:] {
		if rng.Float64() < 0.5 {
			continue
		}
		stmt.Payments = append(stmt.Payments, mobileEntry{
			CaseID:    c.ID,
			Amount:    c.TotalOwed,
			Date:      "2024-03-15",
			Mode:      string(modes[rng.Intn(len(modes))]),
			Reference: fmt.Sprintf("MM%09d", rng.Intn(1000000000)),
		})
	}

	writeJSONFile(filepath.Join(baseDir, "statements", "statement_mobile.json"), stmt)
	fmt.Printf("Generated %d mobile money lines -> statements/statement_mobile.json\n", len(stmt.Payments))
}

func writeJSONFile(path string, v any) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
}

func findTestdataDir() string {
	for _, c := range []string{"testdata", "../testdata", "../../testdata"} {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	return "testdata"
}
