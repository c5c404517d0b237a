package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"ledger-exchange-go/internal/models"
	"ledger-exchange-go/internal/store"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("LEDGER_TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("missing LEDGER_TEST_POSTGRES_DSN env var")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	service, err := NewService(ctx, models.DatabaseConfig{
		Backend:      models.BackendPostgres,
		PostgresDSN:  dsn,
		MaxOpenConns: 20,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(service.Close)

	if err := service.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	return service
}

func TestIsWriteConflict(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: "40001"}, true},
		{&pgconn.PgError{Code: "40P01"}, true},
		{&pgconn.PgError{Code: "23505"}, false},
		{errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := isWriteConflict(tt.err); got != tt.want {
			t.Errorf("isWriteConflict(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestNewService_RequiresDSN(t *testing.T) {
	_, err := NewService(context.Background(), models.DatabaseConfig{MaxOpenConns: 1, PingTimeout: time.Second})
	if err == nil {
		t.Fatal("Expected error for empty DSN")
	}
}

func TestPostgres_InsertGetAndNotFound(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	jon, err := service.InsertAccount(ctx, "Jon", decimal.RequireFromString("100.10"))
	if err != nil {
		t.Fatalf("InsertAccount failed: %v", err)
	}

	got, err := service.GetAccount(ctx, jon.Id)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !got.Balance.Equal(decimal.RequireFromString("100.1")) {
		t.Errorf("Expected balance 100.1, got %s", got.Balance.String())
	}

	if _, err := service.GetAccount(ctx, 999); !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}
}

func TestPostgres_ConditionalDualUpdate(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	jon, _ := service.InsertAccount(ctx, "Jon", decimal.NewFromInt(100))
	snow, _ := service.InsertAccount(ctx, "Snow", decimal.NewFromInt(100))

	params := store.DualUpdateParams{
		FromId: jon.Id, FromOldBalance: jon.Balance, FromNewBalance: decimal.NewFromInt(70),
		ToId: snow.Id, ToOldBalance: snow.Balance, ToNewBalance: decimal.NewFromInt(130),
	}
	applied, err := service.ConditionalDualUpdate(ctx, params)
	if err != nil || applied != 2 {
		t.Fatalf("Expected 2 rows applied, got %d (%v)", applied, err)
	}

	applied, err = service.ConditionalDualUpdate(ctx, params)
	if err != nil || applied != 0 {
		t.Fatalf("Expected stale replay to apply 0 rows, got %d (%v)", applied, err)
	}
}

func TestPostgres_ConcurrentTransfersConserveTotal(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	a, _ := service.InsertAccount(ctx, "A", decimal.NewFromInt(1000))
	b, _ := service.InsertAccount(ctx, "B", decimal.NewFromInt(1000))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := a.Id, b.Id
			if i%2 == 1 {
				from, to = to, from
			}
			fromAcc, err := service.GetAccount(ctx, from)
			if err != nil {
				return
			}
			toAcc, err := service.GetAccount(ctx, to)
			if err != nil {
				return
			}
			amount := decimal.NewFromInt(int64(i%7 + 1))
			_, _ = service.ConditionalDualUpdate(ctx, store.DualUpdateParams{
				FromId: from, FromOldBalance: fromAcc.Balance, FromNewBalance: fromAcc.Balance.Sub(amount),
				ToId: to, ToOldBalance: toAcc.Balance, ToNewBalance: toAcc.Balance.Add(amount),
			})
		}(i)
	}
	wg.Wait()

	accounts, err := service.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if total := store.TotalBalance(accounts); !total.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("Expected total 2000, got %s", total.String())
	}
}
