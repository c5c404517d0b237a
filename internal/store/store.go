package store

import (
	"context"
	"errors"

	"ledger-exchange-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInsertFailed    = errors.New("insert affected no rows")
)

// DualUpdateParams carries the observed (old) and computed (new) balances of
// both sides of a transfer.
type DualUpdateParams struct {
	FromId         int64
	FromOldBalance decimal.Decimal
	FromNewBalance decimal.Decimal
	ToId           int64
	ToOldBalance   decimal.Decimal
	ToNewBalance   decimal.Decimal
}

// LedgerStore defines the contract that every backend (SQLite, PostgreSQL) must satisfy.
type LedgerStore interface {
	// --- Schema ---
	InitSchema(ctx context.Context) error
	Reset(ctx context.Context) error

	// --- Accounts ---
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	InsertAccount(ctx context.Context, name string, balance decimal.Decimal) (*models.Account, error)

	// ConditionalDualUpdate writes both new balances only if both rows still
	// hold their old balances. It commits exactly 0 or 2 row changes and
	// returns that count; any other outcome is rolled back.
	ConditionalDualUpdate(ctx context.Context, params DualUpdateParams) (int64, error)

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}

// TotalBalance sums every account balance exactly.
func TotalBalance(accounts []models.Account) decimal.Decimal {
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}
	return total
}
