package api

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ledger-exchange-go/internal/database"
	"ledger-exchange-go/internal/models"
	"ledger-exchange-go/internal/store"

	"github.com/shopspring/decimal"
)

func setupTestService(t *testing.T) (*AccountService, func()) {
	ledger, err := database.NewService(context.Background(), models.DatabaseConfig{
		Backend:      models.BackendSQLite,
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  5 * time.Second,
		BusyTimeout:  10 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	return NewAccountService(ledger, nil), ledger.Close
}

func TestInsertAccount(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	result := svc.InsertAccount(context.Background(), "Jon", decimal.RequireFromString("100.10"))
	if !result.Ok() {
		t.Fatalf("Expected success, got %q", result.Message)
	}
	if result.Message != models.MessageAccountCreated {
		t.Errorf("Expected message %q, got %q", models.MessageAccountCreated, result.Message)
	}
	if result.Account == nil || result.Account.Id <= 0 {
		t.Fatalf("Expected account with assigned id, got %+v", result.Account)
	}

	got := svc.GetAccount(context.Background(), result.Account.Id)
	if !got.Ok() || got.Account == nil {
		t.Fatalf("Expected account, got %+v", got)
	}
	if !got.Account.Equal(*result.Account) {
		t.Errorf("Expected %s, got %s", result.Account, got.Account)
	}
	if got.Accounts != nil {
		t.Errorf("Expected accounts to be absent on single-account result")
	}
}

func TestInsertAccount_Validation(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	tests := []struct {
		name    string
		account string
		balance string
	}{
		{"empty name", "", "10"},
		{"blank name", "   ", "10"},
		{"negative balance", "Jon", "-0.01"},
		{"too many decimal places", "Jon", "1e-2000000"},
		{"too many integer digits", "Jon", "1e25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := svc.InsertAccount(context.Background(), tt.account, decimal.RequireFromString(tt.balance))
			if result.Ok() || result.Kind != models.KindValidation {
				t.Errorf("Expected validation failure, got %+v", result)
			}
		})
	}

	if result := svc.GetAllAccounts(context.Background()); result.Ok() {
		t.Errorf("Expected no accounts after rejected inserts, got %d", len(result.Accounts))
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	result := svc.GetAccount(context.Background(), 999)
	if result.Ok() || result.Kind != models.KindNotFound {
		t.Fatalf("Expected not found, got %+v", result)
	}
	if result.Message != "No accounts found for id 999" {
		t.Errorf("Unexpected message %q", result.Message)
	}
}

func TestGetAllAccounts(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	empty := svc.GetAllAccounts(ctx)
	if empty.Ok() || empty.Kind != models.KindNotFound || empty.Message != models.MessageEmptyLedger {
		t.Fatalf("Expected empty-ledger failure, got %+v", empty)
	}

	for _, name := range []string{"Jon", "Snow"} {
		if r := svc.InsertAccount(ctx, name, decimal.NewFromInt(100)); !r.Ok() {
			t.Fatalf("InsertAccount(%s) failed: %q", name, r.Message)
		}
	}

	result := svc.GetAllAccounts(ctx)
	if !result.Ok() {
		t.Fatalf("Expected success, got %q", result.Message)
	}
	if len(result.Accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(result.Accounts))
	}
	if result.Account != nil {
		t.Errorf("Expected account to be absent on list result")
	}
}

func TestTransfer(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	jon := svc.InsertAccount(ctx, "Jon", decimal.NewFromInt(100)).Account
	snow := svc.InsertAccount(ctx, "Snow", decimal.NewFromInt(100)).Account

	result := svc.Transfer(ctx, models.TransferRequest{
		FromAccountId: jon.Id,
		ToAccountId:   snow.Id,
		Amount:        decimal.NewFromInt(30),
	})
	if !result.Ok() {
		t.Fatalf("Expected success, got %q", result.Message)
	}

	list := svc.GetAllAccounts(ctx)
	if total := store.TotalBalance(list.Accounts); !total.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected total 200, got %s", total.String())
	}
	if got := svc.GetAccount(ctx, jon.Id).Account.Balance; !got.Equal(decimal.NewFromInt(70)) {
		t.Errorf("Expected Jon balance 70, got %s", got.String())
	}
}

type brokenStore struct {
	store.LedgerStore
	err error
}

func (s *brokenStore) GetAccount(context.Context, int64) (*models.Account, error) {
	return nil, s.err
}

func (s *brokenStore) ListAccounts(context.Context) ([]models.Account, error) {
	return nil, s.err
}

func (s *brokenStore) InsertAccount(context.Context, string, decimal.Decimal) (*models.Account, error) {
	return nil, s.err
}

func (s *brokenStore) Ping(context.Context) error {
	return s.err
}

func TestStorageErrorsAreTranslated(t *testing.T) {
	svc := NewAccountService(&brokenStore{err: errors.New("database is locked")}, nil)
	ctx := context.Background()

	results := map[string]models.Result{
		"get":    svc.GetAccount(ctx, 1),
		"list":   svc.GetAllAccounts(ctx),
		"insert": svc.InsertAccount(ctx, "Jon", decimal.NewFromInt(1)),
	}
	for op, r := range results {
		if r.Ok() || r.Kind != models.KindPersistence {
			t.Errorf("%s: expected persistence failure, got %+v", op, r)
		}
		if r.Message != models.MessageStorageError {
			t.Errorf("%s: expected message %q, got %q", op, models.MessageStorageError, r.Message)
		}
	}

	if err := svc.HealthCheck(ctx); err == nil {
		t.Errorf("Expected health check to fail")
	}
}

func TestInsertAccount_NoRowsAffected(t *testing.T) {
	svc := NewAccountService(&brokenStore{err: store.ErrInsertFailed}, nil)

	result := svc.InsertAccount(context.Background(), "Jon", decimal.NewFromInt(5))
	if result.Ok() || result.Kind != models.KindPersistence {
		t.Fatalf("Expected persistence failure, got %+v", result)
	}
	if result.Message != "Couldn't insert {id=0, name='Jon', balance=5}" {
		t.Errorf("Unexpected message %q", result.Message)
	}
}
