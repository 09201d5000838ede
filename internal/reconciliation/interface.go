package reconciliation

//go:generate mockgen -destination=mocks/mock_transactor.go -package=mock_reconciliation -source=interface.go Transactor
//go:generate mockgen -destination=mocks/mock_ledger.go -package=mock_reconciliation github.com/dossier/recouvrement/internal/domain Ledger

import (
	"context"

	"github.com/dossier/recouvrement/internal/domain"
)

// Transactor runs fn inside one storage transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithTx(ctx context.Context, fn func(domain.Ledger) error) error
}
