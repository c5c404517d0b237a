package store

import (
	"testing"

	"ledger-exchange-go/internal/models"

	"github.com/shopspring/decimal"
)

func TestTotalBalance(t *testing.T) {
	accounts := []models.Account{
		{Id: 1, Name: "Jon", Balance: decimal.RequireFromString("100.10")},
		{Id: 2, Name: "Snow", Balance: decimal.RequireFromString("0.2")},
		{Id: 3, Name: "Arya", Balance: decimal.RequireFromString("0.7")},
	}

	total := TotalBalance(accounts)
	if !total.Equal(decimal.RequireFromString("101")) {
		t.Errorf("Expected total 101, got %s", total.String())
	}

	if !TotalBalance(nil).IsZero() {
		t.Errorf("Expected zero total for empty ledger")
	}
}

// Compile-time checks that the interface is importable and usable.
func TestLedgerStoreInterfaceExists(t *testing.T) {
	_ = ErrAccountNotFound
	_ = ErrInsertFailed
	_ = DualUpdateParams{}

	var _ LedgerStore
}
