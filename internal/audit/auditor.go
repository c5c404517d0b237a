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

package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ledger-exchange-go/internal/models"
	"ledger-exchange-go/internal/store"

	"go.uber.org/zap"
)

// Check lists every account once and reports the ledger total and any
// account found below zero.
func Check(ctx context.Context, ledger store.LedgerStore) (models.AuditReport, error) {
	accounts, err := ledger.ListAccounts(ctx)
	if err != nil {
		return models.AuditReport{}, fmt.Errorf("failed to list accounts: %w", err)
	}

	report := models.AuditReport{
		AccountCount: len(accounts),
		Total:        store.TotalBalance(accounts),
		CheckedAt:    time.Now().UTC(),
	}
	for _, a := range accounts {
		if a.Balance.IsNegative() {
			report.NegativeAccounts = append(report.NegativeAccounts, a.Id)
		}
	}
	return report, nil
}

// Auditor polls the ledger on a fixed interval and keeps the latest report
type Auditor struct {
	ledger   store.LedgerStore
	interval time.Duration

	mutex sync.RWMutex
	last  *models.AuditReport

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
}

func NewAuditor(ledger store.LedgerStore, interval time.Duration) *Auditor {
	return &Auditor{
		ledger:   ledger,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

func (a *Auditor) Start(ctx context.Context) error {
	if a.interval <= 0 {
		return fmt.Errorf("audit interval must be positive, got %s", a.interval)
	}

	if !a.started.CompareAndSwap(false, true) {
		return fmt.Errorf("ledger auditor already started")
	}

	zap.L().Info("Starting ledger auditor", zap.Duration("interval", a.interval))
	go a.pollLoop(ctx)
	return nil
}

// Stop ends the poll loop and waits for it to exit. It is a no-op if the
// auditor was never started and safe to call more than once.
func (a *Auditor) Stop() {
	if !a.started.Load() {
		return
	}
	a.stopOnce.Do(func() {
		zap.L().Info("Stopping ledger auditor")
		close(a.stopChan)
		<-a.doneChan
		zap.L().Info("Ledger auditor stopped")
	})
}

// LastReport returns the most recent report, if a pass has completed.
func (a *Auditor) LastReport() (models.AuditReport, bool) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if a.last == nil {
		return models.AuditReport{}, false
	}
	return *a.last, true
}

// RunOnce performs a single audit pass and records it.
func (a *Auditor) RunOnce(ctx context.Context) (models.AuditReport, error) {
	report, err := Check(ctx, a.ledger)
	if err != nil {
		zap.L().Error("Ledger audit failed", zap.Error(err))
		return report, err
	}

	a.mutex.Lock()
	a.last = &report
	a.mutex.Unlock()

	if !report.Healthy() {
		zap.L().Error("Ledger audit found negative balances",
			zap.Int64s("account_ids", report.NegativeAccounts),
			zap.String("total", report.Total.String()))
	} else {
		zap.L().Debug("Ledger audit passed",
			zap.Int("accounts", report.AccountCount),
			zap.String("total", report.Total.String()))
	}
	return report, nil
}

func (a *Auditor) pollLoop(ctx context.Context) {
	defer close(a.doneChan)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	_, _ = a.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			_, _ = a.RunOnce(ctx)
		case <-a.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}
