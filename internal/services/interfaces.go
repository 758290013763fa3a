package services

import (
	"context"

	"github.com/elentis/reconcile/internal/assetrail"
	"github.com/elentis/reconcile/internal/cardrail"
	"github.com/elentis/reconcile/internal/models"
)

// Ledger is the transaction ledger store.
type Ledger interface {
	Open(ctx context.Context, entry *models.LedgerEntry) (int64, error)
	TryFinalize(ctx context.Context, req models.FinalizeRequest) (models.FinalizeResult, error)
	MarkProcessing(ctx context.Context, rail models.Rail, orderID, recordID string) (bool, error)
	History(ctx context.Context, accountID string) ([]models.LedgerEntry, error)
}

// Balances is the balance engine.
type Balances interface {
	ApplyDelta(ctx context.Context, accountID string, rail models.Rail, delta int64) (int64, error)
	Balance(ctx context.Context, accountID string, rail models.Rail) (int64, error)
	Balances(ctx context.Context, accountID string) (models.Balances, error)
}

type Bindings interface {
	Find(ctx context.Context, accountID string, rail models.Rail) (*models.DepositBinding, error)
	Save(ctx context.Context, b *models.DepositBinding) (*models.DepositBinding, error)
}

// UnitOfWork runs fn atomically: either every ledger and balance change made
// through the supplied views commits, or none does.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(Ledger, Balances) error) error
}

type AssetRail interface {
	DepositAddress(ctx context.Context, referenceID string) (*assetrail.DepositAddress, error)
	Withdraw(ctx context.Context, orderID, address, memo string, amount int64) (*assetrail.WithdrawResult, error)
	DepositRecord(ctx context.Context, recordID string) (*assetrail.DepositRecord, error)
	Decimals() int32
}

type CardRail interface {
	EnsureCustomer(ctx context.Context, accountID, referenceID string) (string, error)
	CreatePaymentIntent(ctx context.Context, customerID, accountID string, amount int64) (*cardrail.PaymentIntent, error)
	Payout(ctx context.Context, orderID, accountID, destination string, amount int64) (string, error)
	Decimals() int32
}

type BindingCache interface {
	Get(ctx context.Context, accountID string, rail models.Rail) (*models.DepositBinding, bool)
	Set(ctx context.Context, b *models.DepositBinding)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev LedgerEvent)
}
