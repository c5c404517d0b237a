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

package api

import (
	"context"
	"errors"
	"strings"

	"ledger-exchange-go/internal/models"
	"ledger-exchange-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetAccount returns the account snapshot for id.
func (s *AccountService) GetAccount(ctx context.Context, id int64) models.Result {
	account, err := s.ledger.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			zap.L().Warn("Account not found", zap.Int64("account_id", id))
			return models.Failure(models.KindNotFound, models.NotFoundMessage(id))
		}
		zap.L().Error("Failed to get account", zap.Int64("account_id", id), zap.Error(err))
		return models.Failure(models.KindPersistence, models.MessageStorageError)
	}

	return models.SuccessAccount(*account, "")
}

// GetAllAccounts lists the ledger. An empty ledger is reported as not found.
func (s *AccountService) GetAllAccounts(ctx context.Context) models.Result {
	accounts, err := s.ledger.ListAccounts(ctx)
	if err != nil {
		zap.L().Error("Failed to list accounts", zap.Error(err))
		return models.Failure(models.KindPersistence, models.MessageStorageError)
	}
	if len(accounts) == 0 {
		return models.Failure(models.KindNotFound, models.MessageEmptyLedger)
	}

	return models.SuccessAccounts(accounts, "")
}

// InsertAccount stores a new account and returns it with its assigned id.
func (s *AccountService) InsertAccount(ctx context.Context, name string, balance decimal.Decimal) models.Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Failure(models.KindValidation, "Account name is required")
	}
	if !models.WithinPrecision(balance) {
		return models.Failure(models.KindValidation, models.PrecisionMessage("Initial balance"))
	}
	if balance.IsNegative() {
		return models.Failure(models.KindValidation, "Initial balance can't be negative. Requested balance - "+balance.String())
	}

	account, err := s.ledger.InsertAccount(ctx, name, balance)
	if err != nil {
		pending := models.Account{Name: name, Balance: balance}
		if errors.Is(err, store.ErrInsertFailed) {
			zap.L().Warn("Insert affected no rows", zap.Stringer("account", pending))
			return models.Failure(models.KindPersistence, "Couldn't insert "+pending.String())
		}
		zap.L().Error("Failed to insert account", zap.Stringer("account", pending), zap.Error(err))
		return models.Failure(models.KindPersistence, models.MessageStorageError)
	}

	zap.L().Info("Account created",
		zap.Int64("account_id", account.Id),
		zap.String("name", account.Name),
		zap.String("balance", account.Balance.String()))
	return models.SuccessAccount(*account, models.MessageAccountCreated)
}

// Transfer delegates to the exchange coordinator. Conflicts are returned to the
// caller as-is; retrying is up to them.
func (s *AccountService) Transfer(ctx context.Context, req models.TransferRequest) models.Result {
	return s.coordinator.Transfer(ctx, req)
}
