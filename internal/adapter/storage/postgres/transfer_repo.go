package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"custodial-wallet/internal/core/domain"
	"custodial-wallet/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TransferRepo implements ports.TransferRepository.
type TransferRepo struct {
	pool Pool
}

// NewTransferRepo creates a new TransferRepo.
func NewTransferRepo(pool Pool) *TransferRepo {
	return &TransferRepo{pool: pool}
}

const transferColumns = `id, sender_wallet_id, recipient_wallet_id, amount, status, reference, description, created_at`

// Create inserts the logical transfer record within a database transaction.
func (r *TransferRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transfer) error {
	query := `INSERT INTO transfers (id, sender_wallet_id, recipient_wallet_id, amount, status, reference, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.SenderWalletID, t.RecipientWalletID, t.Amount,
		t.Status, t.Reference, t.Description, t.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperror.Wrap(apperror.CodeConflict, "duplicate transfer reference", http.StatusConflict, err)
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// GetByReference fetches a transfer by its unique reference.
func (r *TransferRepo) GetByReference(ctx context.Context, reference string) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE reference = $1`

	t := &domain.Transfer{}
	err := r.pool.QueryRow(ctx, query, reference).Scan(
		&t.ID, &t.SenderWalletID, &t.RecipientWalletID, &t.Amount,
		&t.Status, &t.Reference, &t.Description, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer by reference: %w", err)
	}
	return t, nil
}
