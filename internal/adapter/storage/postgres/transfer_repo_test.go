package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"custodial-wallet/internal/core/domain"
	"custodial-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransfer() *domain.Transfer {
	return &domain.Transfer{
		ID:                uuid.New(),
		SenderWalletID:    uuid.New(),
		RecipientWalletID: uuid.New(),
		Amount:            3000,
		Status:            domain.TransactionStatusSuccess,
		Reference:         "TRF_12345678_1700000000000_aabbccddeeff",
		Description:       "rent split",
		CreatedAt:         time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestTransferRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransferRepo(mock)
	tr := newTestTransfer()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transfers").
		WithArgs(tr.ID, tr.SenderWalletID, tr.RecipientWalletID, tr.Amount,
			tr.Status, tr.Reference, tr.Description, tr.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, tr)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepo_Create_DuplicateReferenceIsConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransferRepo(mock)
	tr := newTestTransfer()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transfers").
		WithArgs(tr.ID, tr.SenderWalletID, tr.RecipientWalletID, tr.Amount,
			tr.Status, tr.Reference, tr.Description, tr.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "transfers_reference_key"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, tr)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepo_GetByReference(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransferRepo(mock)
	tr := newTestTransfer()

	mock.ExpectQuery("SELECT .+ FROM transfers WHERE reference").
		WithArgs(tr.Reference).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "sender_wallet_id", "recipient_wallet_id", "amount", "status", "reference", "description", "created_at",
		}).AddRow(
			tr.ID, tr.SenderWalletID, tr.RecipientWalletID, tr.Amount,
			tr.Status, tr.Reference, tr.Description, tr.CreatedAt,
		))

	result, err := repo.GetByReference(context.Background(), tr.Reference)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, tr.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepo_GetByReference_NotFoundReturnsNil(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransferRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM transfers WHERE reference").
		WithArgs("TRF_missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "sender_wallet_id", "recipient_wallet_id", "amount", "status", "reference", "description", "created_at",
		}))

	result, err := repo.GetByReference(context.Background(), "TRF_missing")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}
