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
	"fmt"

	"ledger-exchange-go/internal/exchange"
	"ledger-exchange-go/internal/store"
)

// AccountService is the single entry point the request layer talks to. Every
// operation returns a models.Result; storage errors never leave this package.
type AccountService struct {
	ledger      store.LedgerStore
	coordinator *exchange.Coordinator
}

func NewAccountService(ledger store.LedgerStore, coordinator *exchange.Coordinator) *AccountService {
	if coordinator == nil {
		coordinator = exchange.NewCoordinator(ledger)
	}
	return &AccountService{
		ledger:      ledger,
		coordinator: coordinator,
	}
}

func (s *AccountService) HealthCheck(ctx context.Context) error {
	if err := s.ledger.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
