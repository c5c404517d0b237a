// Package postgres is the PostgreSQL LedgerStore backend built on pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger-exchange-go/internal/models"
	"ledger-exchange-go/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

// SQLSTATEs for which the write was not applied and the caller may re-read.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

type Service struct {
	pool *pgxpool.Pool
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres DSN cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = 1
	poolCfg.HealthCheckPeriod = 10 * time.Second
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	zap.L().Info("Connecting to PostgreSQL",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns))

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pingCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{pool: pool}
	if err := service.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("PostgreSQL service initialized successfully")
	return service, nil
}

func (s *Service) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, queryCreateAccountsTable); err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}
	return nil
}

// Reset drops every account and recreates the table. Maintenance and tests only.
func (s *Service) Reset(ctx context.Context) error {
	zap.L().Warn("Resetting ledger: dropping all accounts")

	if _, err := s.pool.Exec(ctx, queryDropAccountsTable); err != nil {
		return fmt.Errorf("failed to drop accounts table: %w", err)
	}
	return s.InitSchema(ctx)
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	var balanceStr string
	if err := row.Scan(&account.Id, &account.Name, &balanceStr); err != nil {
		return nil, err
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
	}
	account.Balance = balance
	return &account, nil
}

func (s *Service) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	zap.L().Debug("Querying account by ID", zap.Int64("account_id", id))

	account, err := scanAccount(s.pool.QueryRow(ctx, queryGetAccountById, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", store.ErrAccountNotFound, id)
		}
		zap.L().Error("Failed to query account by ID", zap.Int64("account_id", id), zap.Error(err))
		return nil, fmt.Errorf("unable to query account by ID: %w", err)
	}
	return account, nil
}

func (s *Service) ListAccounts(ctx context.Context) ([]models.Account, error) {
	zap.L().Debug("Querying all accounts")

	rows, err := s.pool.Query(ctx, queryGetAllAccounts)
	if err != nil {
		zap.L().Error("Failed to query accounts", zap.Error(err))
		return nil, fmt.Errorf("unable to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan account row: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during account row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	zap.L().Debug("Retrieved accounts", zap.Int("count", len(accounts)))
	return accounts, nil
}

func (s *Service) InsertAccount(ctx context.Context, name string, balance decimal.Decimal) (*models.Account, error) {
	zap.L().Info("Creating account", zap.String("name", name), zap.String("balance", balance.String()))

	account, err := scanAccount(s.pool.QueryRow(ctx, queryInsertAccount, name, balance.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", store.ErrInsertFailed, name)
		}
		zap.L().Error("Failed to insert account", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("unable to insert account: %w", err)
	}

	zap.L().Info("Account created successfully",
		zap.Int64("account_id", account.Id),
		zap.String("name", account.Name))
	return account, nil
}

// ConditionalDualUpdate gates each row on its own observed balance inside one
// READ COMMITTED transaction. Rows are touched in id order so that opposing
// transfers on the same pair cannot deadlock.
func (s *Service) ConditionalDualUpdate(ctx context.Context, params store.DualUpdateParams) (int64, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	type rowUpdate struct {
		id         int64
		oldBalance string
		newBalance string
	}
	updates := []rowUpdate{
		{params.FromId, params.FromOldBalance.String(), params.FromNewBalance.String()},
		{params.ToId, params.ToOldBalance.String(), params.ToNewBalance.String()},
	}
	if updates[1].id < updates[0].id {
		updates[0], updates[1] = updates[1], updates[0]
	}

	var applied int64
	for _, u := range updates {
		tag, err := tx.Exec(ctx, queryConditionalUpdateBalance, u.newBalance, u.id, u.oldBalance)
		if err != nil {
			if isWriteConflict(err) {
				zap.L().Info("Conditional update lost a write conflict",
					zap.Int64("account_id", u.id), zap.Error(err))
				return 0, nil
			}
			return 0, fmt.Errorf("failed to update balance for account %d: %w", u.id, err)
		}
		applied += tag.RowsAffected()
	}

	if applied != 2 {
		zap.L().Info("Conditional update rejected, snapshot is stale",
			zap.Int64("from_id", params.FromId),
			zap.Int64("to_id", params.ToId),
			zap.Int64("matched_rows", applied))
		return 0, nil
	}

	if err := tx.Commit(ctx); err != nil {
		if isWriteConflict(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return applied, nil
}

func isWriteConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
}

func (s *Service) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Service) Close() {
	s.pool.Close()
}
