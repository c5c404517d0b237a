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

package main

import (
	"context"
	"flag"

	"ledger-exchange-go/internal/api"
	"ledger-exchange-go/internal/audit"
	"ledger-exchange-go/internal/common"
	"ledger-exchange-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	idFlag := flag.Int64("id", 0, "Show a single account by id (optional)")
	flag.Parse()

	logger.Info("Starting ledger report")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to ledger",
		zap.String("backend", cfg.Database.Backend),
		zap.String("path", cfg.Database.Path))
	ledger, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer ledger.Close()

	accounts, err := common.LoadAccounts(ctx, api.NewAccountService(ledger, nil), *idFlag)
	if err != nil {
		logger.Fatal("Failed to load accounts", zap.Error(err))
	}

	common.PrintLedgerReport(accounts, common.DefaultWidth)

	if *idFlag > 0 {
		return
	}
	report, err := audit.Check(ctx, ledger)
	if err != nil {
		logger.Fatal("Failed to audit ledger", zap.Error(err))
	}
	if !report.Healthy() {
		logger.Error("Ledger has negative balances", zap.Int64s("account_ids", report.NegativeAccounts))
	}

	logger.Info("Ledger report completed",
		zap.Int("accounts", report.AccountCount),
		zap.String("total", report.Total.String()))
}
