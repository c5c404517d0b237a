/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ledger-exchange-go/internal/models"
	"ledger-exchange-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
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

	account, err := scanAccount(s.db.QueryRowContext(ctx, queryGetAccountById, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", store.ErrAccountNotFound, id)
		}
		zap.L().Error("Failed to query account by ID", zap.Int64("account_id", id), zap.Error(err))
		return nil, fmt.Errorf("unable to query account by ID: %w", err)
	}

	zap.L().Debug("Retrieved account by ID",
		zap.Int64("account_id", account.Id),
		zap.String("balance", account.Balance.String()))
	return account, nil
}

func (s *Service) ListAccounts(ctx context.Context) ([]models.Account, error) {
	zap.L().Debug("Querying all accounts")

	rows, err := s.db.QueryContext(ctx, queryGetAllAccounts)
	if err != nil {
		zap.L().Error("Failed to query accounts", zap.Error(err))
		return nil, fmt.Errorf("unable to query accounts: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			zap.L().Error("Failed to scan account row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan account row: %w", err)
		}
		accounts = append(accounts, *account)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during account row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	zap.L().Debug("Retrieved accounts", zap.Int("count", len(accounts)))
	return accounts, nil
}

func (s *Service) InsertAccount(ctx context.Context, name string, balance decimal.Decimal) (*models.Account, error) {
	zap.L().Info("Creating account", zap.String("name", name), zap.String("balance", balance.String()))

	account, err := scanAccount(s.db.QueryRowContext(ctx, queryInsertAccount, name, balance.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", store.ErrInsertFailed, name)
		}
		zap.L().Error("Failed to insert account", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("unable to insert account: %w", err)
	}

	zap.L().Info("Account created successfully",
		zap.Int64("account_id", account.Id),
		zap.String("name", account.Name),
		zap.String("balance", account.Balance.String()))
	return account, nil
}
