package repository

import (
	"context"
	"database/sql"

	"github.com/dossier/recouvrement/internal/domain"
)

type ImportRepo struct {
	db *sql.DB
}

func NewImportRepo(db *sql.DB) *ImportRepo {
	return &ImportRepo{db: db}
}

// ExistsByHash reports whether a statement with this file hash was already imported.
func (r *ImportRepo) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM import_batches WHERE file_hash = ?", hash,
	).Scan(&count)
	return count > 0, err
}

func (r *ImportRepo) Insert(ctx context.Context, b *domain.ImportBatch) error {
	if b.ImportedAt.IsZero() {
		b.ImportedAt = now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO import_batches
		(id, format, batch_ref, file_hash, line_count, accepted, rejected, imported_by, imported_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		b.ID, b.Format, b.BatchRef, b.FileHash, b.LineCount, b.Accepted, b.Rejected,
		b.ImportedBy, formatTimestamp(b.ImportedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyImported
		}
		return &domain.StorageError{Op: "insert import batch", Err: err}
	}
	return nil
}

// UpdateCounts stores the outcome of a batch once its lines have been applied.
func (r *ImportRepo) UpdateCounts(ctx context.Context, b *domain.ImportBatch) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE import_batches SET line_count = ?, accepted = ?, rejected = ? WHERE id = ?",
		b.LineCount, b.Accepted, b.Rejected, b.ID,
	)
	if err != nil {
		return &domain.StorageError{Op: "update import batch", Err: err}
	}
	return nil
}

// Delete removes a batch row so that its file can be imported again.
func (r *ImportRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM import_batches WHERE id = ?", id); err != nil {
		return &domain.StorageError{Op: "delete import batch", Err: err}
	}
	return nil
}
