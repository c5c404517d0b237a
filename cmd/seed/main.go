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

	"ledger-exchange-go/internal/common"
	"ledger-exchange-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	fileFlag := flag.String("file", "", "Seed file (default: SEED_FILE or accounts.yaml)")
	resetFlag := flag.Bool("reset", false, "Drop and recreate the accounts table before seeding (destroys all data)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	seedFile := cfg.Ledger.SeedFile
	if *fileFlag != "" {
		seedFile = *fileFlag
	}

	seeds, err := common.LoadSeedAccounts(seedFile)
	if err != nil {
		logger.Fatal("Failed to load seed file", zap.String("file", seedFile), zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *resetFlag {
		logger.Warn("Resetting ledger")
		if err := services.Ledger.Reset(ctx); err != nil {
			logger.Fatal("Failed to reset ledger", zap.Error(err))
		}
	}

	created, err := common.SeedLedger(ctx, services.Accounts, seeds)
	if err != nil {
		logger.Fatal("Seeding stopped", zap.Int("created", created), zap.Error(err))
	}

	logger.Info("Seeding completed",
		zap.String("file", seedFile),
		zap.Int("created", created),
		zap.Bool("reset", *resetFlag))
}
