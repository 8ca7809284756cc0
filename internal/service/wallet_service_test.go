package service

import (
	"context"
	"fmt"
	"testing"

	"custodial-wallet/internal/core/domain"
	"custodial-wallet/internal/core/ports"
	"custodial-wallet/internal/core/ports/mocks"
	"custodial-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletTestDeps struct {
	svc        *WalletServiceImpl
	walletRepo *mocks.MockWalletRepository
	txnRepo    *mocks.MockTransactionRepository
	ctrl       *gomock.Controller
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		txnRepo:    mocks.NewMockTransactionRepository(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewWalletService(d.walletRepo, d.txnRepo, zerolog.Nop())
	return d
}

func TestWalletService_EnsureWallet_ReturnsExisting(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	existing := &domain.Wallet{ID: uuid.New(), UserID: userID, Balance: 1234}

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(existing, nil)

	wallet, err := d.svc.EnsureWallet(ctx, domain.Identity{ID: userID})
	require.NoError(t, err)
	assert.Same(t, existing, wallet)
}

func TestWalletService_EnsureWallet_CreatesOnFirstSight(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	identity := domain.Identity{ID: userID, Email: "owner@example.com"}

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(nil, nil)
	d.walletRepo.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, w *domain.Wallet) error {
			assert.Equal(t, userID, w.UserID)
			assert.Equal(t, "owner@example.com", w.Email)
			assert.Len(t, w.WalletNumber, 10)
			assert.Zero(t, w.Balance)
			return nil
		})

	wallet, err := d.svc.EnsureWallet(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, userID, wallet.UserID)
}

func TestWalletService_EnsureWallet_LosesCreationRace(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	winner := &domain.Wallet{ID: uuid.New(), UserID: userID}

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(nil, nil)
	d.walletRepo.EXPECT().Create(ctx, gomock.Any()).Return(fmt.Errorf("duplicate key value"))
	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(winner, nil)

	wallet, err := d.svc.EnsureWallet(ctx, domain.Identity{ID: userID})
	require.NoError(t, err)
	assert.Same(t, winner, wallet)
}

func TestWalletService_GetBalance(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()

	d.walletRepo.EXPECT().GetByID(ctx, walletID).Return(&domain.Wallet{ID: walletID, Balance: 9900}, nil)

	balance, err := d.svc.GetBalance(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(9900), balance)
}

func TestWalletService_GetBalance_NotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()

	d.walletRepo.EXPECT().GetByID(ctx, walletID).Return(nil, nil)

	_, err := d.svc.GetBalance(ctx, walletID)
	assertAppError(t, err, apperror.CodeNotFound)
}

func TestWalletService_ListTransactions_NormalizesPagination(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()

	d.txnRepo.EXPECT().
		List(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
			assert.Equal(t, 1, params.Page)
			assert.Equal(t, 20, params.PageSize)
			return []domain.Transaction{{WalletID: walletID}}, 1, nil
		})

	txns, total, err := d.svc.ListTransactions(ctx, ports.TransactionListParams{
		WalletID: walletID, Page: 0, PageSize: 5000,
	})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
	assert.Equal(t, int64(1), total)
}
