package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ledger-exchange-go/internal/models"
	"ledger-exchange-go/internal/store"

	"github.com/shopspring/decimal"
)

func testConfig(t *testing.T) models.DatabaseConfig {
	return models.DatabaseConfig{
		Backend:         models.BackendSQLite,
		Path:            filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: 30 * time.Second,
		PingTimeout:     5 * time.Second,
		BusyTimeout:     10 * time.Second,
	}
}

func setupTestDb(t *testing.T) (*Service, func()) {
	service, err := NewService(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	cleanup := func() {
		service.Close()
	}

	return service, cleanup
}

func mustInsert(t *testing.T, service *Service, name, balance string) *models.Account {
	t.Helper()
	account, err := service.InsertAccount(context.Background(), name, decimal.RequireFromString(balance))
	if err != nil {
		t.Fatalf("InsertAccount(%s) failed: %v", name, err)
	}
	return account
}

func mustGet(t *testing.T, service *Service, id int64) *models.Account {
	t.Helper()
	account, err := service.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("GetAccount(%d) failed: %v", id, err)
	}
	return account
}

func TestNewService_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.DatabaseConfig)
	}{
		{"empty path", func(c *models.DatabaseConfig) { c.Path = "" }},
		{"zero max open", func(c *models.DatabaseConfig) { c.MaxOpenConns = 0 }},
		{"negative max idle", func(c *models.DatabaseConfig) { c.MaxIdleConns = -1 }},
		{"zero ping timeout", func(c *models.DatabaseConfig) { c.PingTimeout = 0 }},
		{"negative busy timeout", func(c *models.DatabaseConfig) { c.BusyTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			if _, err := NewService(context.Background(), cfg); err == nil {
				t.Errorf("Expected error for %s, got nil", tt.name)
			}
		})
	}
}

func TestInsertAndGetAccount(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	inserted := mustInsert(t, service, "Jon", "100.10")
	if inserted.Id <= 0 {
		t.Fatalf("Expected assigned id, got %d", inserted.Id)
	}

	got := mustGet(t, service, inserted.Id)
	if got.Name != "Jon" {
		t.Errorf("Expected name Jon, got %s", got.Name)
	}
	if !got.Balance.Equal(decimal.RequireFromString("100.1")) {
		t.Errorf("Expected balance 100.1, got %s", got.Balance.String())
	}
	if !got.Equal(*inserted) {
		t.Errorf("Expected %s, got %s", inserted, got)
	}
}

func TestInsertAccount_AssignsIncreasingIds(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	first := mustInsert(t, service, "Jon", "1")
	second := mustInsert(t, service, "Snow", "1")
	if second.Id <= first.Id {
		t.Errorf("Expected increasing ids, got %d then %d", first.Id, second.Id)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	_, err := service.GetAccount(context.Background(), 999)
	if !errors.Is(err, store.ErrAccountNotFound) {
		t.Fatalf("Expected ErrAccountNotFound, got %v", err)
	}
}

func TestGetAccount_RepeatedReadsAreIdentical(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	inserted := mustInsert(t, service, "Jon", "42.5")
	first := mustGet(t, service, inserted.Id)
	second := mustGet(t, service, inserted.Id)
	if !first.Equal(*second) {
		t.Errorf("Expected identical reads, got %s and %s", first, second)
	}
}

func TestListAccounts(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	accounts, err := service.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if len(accounts) != 0 {
		t.Fatalf("Expected empty ledger, got %d accounts", len(accounts))
	}

	mustInsert(t, service, "Jon", "100")
	mustInsert(t, service, "Snow", "50.25")

	accounts, err = service.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(accounts))
	}
	if total := store.TotalBalance(accounts); !total.Equal(decimal.RequireFromString("150.25")) {
		t.Errorf("Expected total 150.25, got %s", total.String())
	}
}

func TestConditionalDualUpdate_Commits(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	jon := mustInsert(t, service, "Jon", "100")
	snow := mustInsert(t, service, "Snow", "100")

	applied, err := service.ConditionalDualUpdate(context.Background(), store.DualUpdateParams{
		FromId: jon.Id, FromOldBalance: jon.Balance, FromNewBalance: decimal.NewFromInt(70),
		ToId: snow.Id, ToOldBalance: snow.Balance, ToNewBalance: decimal.NewFromInt(130),
	})
	if err != nil {
		t.Fatalf("ConditionalDualUpdate failed: %v", err)
	}
	if applied != 2 {
		t.Fatalf("Expected 2 rows applied, got %d", applied)
	}

	if got := mustGet(t, service, jon.Id); !got.Balance.Equal(decimal.NewFromInt(70)) {
		t.Errorf("Expected Jon balance 70, got %s", got.Balance.String())
	}
	if got := mustGet(t, service, snow.Id); !got.Balance.Equal(decimal.NewFromInt(130)) {
		t.Errorf("Expected Snow balance 130, got %s", got.Balance.String())
	}
}

func TestConditionalDualUpdate_StaleSnapshotRejected(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	jon := mustInsert(t, service, "Jon", "100")
	snow := mustInsert(t, service, "Snow", "100")

	first := store.DualUpdateParams{
		FromId: jon.Id, FromOldBalance: jon.Balance, FromNewBalance: decimal.NewFromInt(90),
		ToId: snow.Id, ToOldBalance: snow.Balance, ToNewBalance: decimal.NewFromInt(110),
	}
	second := store.DualUpdateParams{
		FromId: jon.Id, FromOldBalance: jon.Balance, FromNewBalance: decimal.NewFromInt(80),
		ToId: snow.Id, ToOldBalance: snow.Balance, ToNewBalance: decimal.NewFromInt(120),
	}

	if applied, err := service.ConditionalDualUpdate(ctx, first); err != nil || applied != 2 {
		t.Fatalf("Expected first update to apply 2 rows, got %d (%v)", applied, err)
	}
	applied, err := service.ConditionalDualUpdate(ctx, second)
	if err != nil {
		t.Fatalf("ConditionalDualUpdate failed: %v", err)
	}
	if applied != 0 {
		t.Fatalf("Expected stale update to apply 0 rows, got %d", applied)
	}

	if got := mustGet(t, service, jon.Id); !got.Balance.Equal(decimal.NewFromInt(90)) {
		t.Errorf("Expected Jon balance 90, got %s", got.Balance.String())
	}
	if got := mustGet(t, service, snow.Id); !got.Balance.Equal(decimal.NewFromInt(110)) {
		t.Errorf("Expected Snow balance 110, got %s", got.Balance.String())
	}
}

// One side still matches its pre-image, the other does not: nothing may change.
func TestConditionalDualUpdate_PartialMatchRollsBack(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	jon := mustInsert(t, service, "Jon", "100")
	snow := mustInsert(t, service, "Snow", "100")

	applied, err := service.ConditionalDualUpdate(context.Background(), store.DualUpdateParams{
		FromId: jon.Id, FromOldBalance: jon.Balance, FromNewBalance: decimal.NewFromInt(70),
		ToId: snow.Id, ToOldBalance: decimal.NewFromInt(55), ToNewBalance: decimal.NewFromInt(85),
	})
	if err != nil {
		t.Fatalf("ConditionalDualUpdate failed: %v", err)
	}
	if applied != 0 {
		t.Fatalf("Expected 0 rows applied, got %d", applied)
	}

	if got := mustGet(t, service, jon.Id); !got.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected Jon balance unchanged at 100, got %s", got.Balance.String())
	}
	if got := mustGet(t, service, snow.Id); !got.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected Snow balance unchanged at 100, got %s", got.Balance.String())
	}
}

func TestConditionalDualUpdate_MissingRowRollsBack(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	jon := mustInsert(t, service, "Jon", "100")

	applied, err := service.ConditionalDualUpdate(context.Background(), store.DualUpdateParams{
		FromId: jon.Id, FromOldBalance: jon.Balance, FromNewBalance: decimal.NewFromInt(70),
		ToId: 999, ToOldBalance: decimal.Zero, ToNewBalance: decimal.NewFromInt(30),
	})
	if err != nil {
		t.Fatalf("ConditionalDualUpdate failed: %v", err)
	}
	if applied != 0 {
		t.Fatalf("Expected 0 rows applied, got %d", applied)
	}
	if got := mustGet(t, service, jon.Id); !got.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected Jon balance unchanged at 100, got %s", got.Balance.String())
	}
}

// Many writers share one pre-image; the storage engine must let exactly one win.
func TestConditionalDualUpdate_ConcurrentSamePreimage(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	jon := mustInsert(t, service, "Jon", "100")
	snow := mustInsert(t, service, "Snow", "100")

	const writers = 16
	results := make([]int64, writers)
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := decimal.NewFromInt(int64(i + 1))
			results[i], errs[i] = service.ConditionalDualUpdate(context.Background(), store.DualUpdateParams{
				FromId: jon.Id, FromOldBalance: jon.Balance, FromNewBalance: jon.Balance.Sub(amount),
				ToId: snow.Id, ToOldBalance: snow.Balance, ToNewBalance: snow.Balance.Add(amount),
			})
		}(i)
	}
	wg.Wait()

	commits := 0
	for i := 0; i < writers; i++ {
		if errs[i] != nil {
			t.Fatalf("writer %d failed: %v", i, errs[i])
		}
		switch results[i] {
		case 2:
			commits++
		case 0:
		default:
			t.Fatalf("writer %d applied %d rows, want 0 or 2", i, results[i])
		}
	}
	if commits != 1 {
		t.Fatalf("Expected exactly one commit, got %d", commits)
	}

	accounts, err := service.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if total := store.TotalBalance(accounts); !total.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected total 200, got %s", total.String())
	}
}

func TestReset(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	mustInsert(t, service, "Jon", "100")
	mustInsert(t, service, "Snow", "100")

	if err := service.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	accounts, err := service.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if len(accounts) != 0 {
		t.Fatalf("Expected empty ledger after reset, got %d accounts", len(accounts))
	}

	if account := mustInsert(t, service, "Arya", "1"); account.Id != 1 {
		t.Errorf("Expected ids to restart at 1 after reset, got %d", account.Id)
	}
}
