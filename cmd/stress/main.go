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

// Command stress seeds a batch of accounts over HTTP, fires random concurrent
// transfers between them and checks the ledger total afterwards.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"ledger-exchange-go/internal/client"
	"ledger-exchange-go/internal/common"
	"ledger-exchange-go/internal/models"
	"ledger-exchange-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type stressConfig struct {
	Url         string
	Accounts    int
	Balance     int64
	Transfers   int
	Concurrency int
	Retries     int
	Idempotent  bool
}

type stressResults struct {
	Committed int32
	Conflicts int32
	Rejected  int32
	Failed    int32
	Retried   int32
	Duration  time.Duration
}

func main() {
	cfg := stressConfig{}
	flag.StringVar(&cfg.Url, "url", "http://localhost:4567", "Ledger API base URL")
	flag.IntVar(&cfg.Accounts, "accounts", 100, "Number of accounts to seed")
	flag.Int64Var(&cfg.Balance, "balance", 100, "Initial balance of each seeded account")
	flag.IntVar(&cfg.Transfers, "transfers", 1000, "Number of random transfers")
	flag.IntVar(&cfg.Concurrency, "concurrency", 20, "Number of concurrent workers")
	flag.IntVar(&cfg.Retries, "retries", 0, "Retries per transfer after a conflict")
	flag.BoolVar(&cfg.Idempotent, "idempotent", false, "Send an Idempotency-Key with every transfer")
	flag.Parse()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if cfg.Accounts < 2 || cfg.Balance < 2 || cfg.Concurrency <= 0 {
		logger.Fatal("Need at least 2 accounts, a balance of at least 2 and positive concurrency")
	}

	c, err := client.New(cfg.Url, cfg.Concurrency)
	if err != nil {
		logger.Fatal("Failed to create client", zap.Error(err))
	}
	ctx := context.Background()
	runId := uuid.New().String()[:8]

	before, err := ledgerTotal(ctx, c)
	if err != nil {
		logger.Fatal("Failed to read ledger", zap.Error(err))
	}

	ids, err := seedAccounts(ctx, c, runId, cfg)
	if err != nil {
		logger.Fatal("Failed to seed accounts", zap.Error(err))
	}
	expected := before.Add(decimal.NewFromInt(cfg.Balance * int64(cfg.Accounts)))

	common.PrintHeader("LEDGER STRESS TEST", common.DefaultWidth)
	fmt.Printf("Endpoint:     %s\n", cfg.Url)
	fmt.Printf("Run:          %s\n", runId)
	fmt.Printf("Accounts:     %d x %d\n", cfg.Accounts, cfg.Balance)
	fmt.Printf("Transfers:    %d (%d workers, %d retries)\n", cfg.Transfers, cfg.Concurrency, cfg.Retries)

	results := runTransfers(ctx, c, ids, runId, cfg)

	after, err := ledgerTotal(ctx, c)
	if err != nil {
		logger.Fatal("Failed to read ledger", zap.Error(err))
	}

	common.PrintSeparator("-", common.DefaultWidth)
	fmt.Printf("Committed:    %d\n", results.Committed)
	fmt.Printf("Conflicts:    %d (retried %d)\n", results.Conflicts, results.Retried)
	fmt.Printf("Rejected:     %d\n", results.Rejected)
	fmt.Printf("Failed:       %d\n", results.Failed)
	fmt.Printf("Duration:     %s\n", results.Duration)
	fmt.Printf("Total:        %s (expected %s)\n", after.String(), expected.String())

	if !after.Equal(expected) {
		common.PrintFooter("FAIL: ledger total changed", common.DefaultWidth)
		os.Exit(1)
	}
	common.PrintFooter("PASS: ledger total conserved", common.DefaultWidth)
}

func ledgerTotal(ctx context.Context, c *client.Client) (decimal.Decimal, error) {
	result, err := c.GetAllAccounts(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if !result.Ok() {
		if result.Kind == models.KindNotFound {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("list accounts: %s", result.Message)
	}
	return store.TotalBalance(result.Accounts), nil
}

func seedAccounts(ctx context.Context, c *client.Client, runId string, cfg stressConfig) ([]int64, error) {
	ids := make([]int64, 0, cfg.Accounts)
	for i := 0; i < cfg.Accounts; i++ {
		result, err := c.CreateAccount(ctx, fmt.Sprintf("stress-%s-%d", runId, i), decimal.NewFromInt(cfg.Balance))
		if err != nil {
			return nil, err
		}
		if !result.Ok() {
			return nil, fmt.Errorf("create account %d: %s", i, result.Message)
		}
		ids = append(ids, result.Account.Id)
	}
	return ids, nil
}

func runTransfers(ctx context.Context, c *client.Client, ids []int64, runId string, cfg stressConfig) stressResults {
	var results stressResults
	jobs := make(chan int)

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(w)))
			for n := range jobs {
				from := rng.Intn(len(ids))
				to := (from + 1 + rng.Intn(len(ids)-1)) % len(ids)
				req := models.TransferRequest{
					FromAccountId: ids[from],
					ToAccountId:   ids[to],
					Amount:        decimal.NewFromInt(rng.Int63n(cfg.Balance-1) + 1),
				}
				key := ""
				if cfg.Idempotent {
					key = fmt.Sprintf("stress-%s-%d", runId, n)
				}
				transferWithRetries(ctx, c, req, key, cfg.Retries, &results)
			}
		}(w)
	}

	for n := 0; n < cfg.Transfers; n++ {
		jobs <- n
	}
	close(jobs)
	wg.Wait()

	results.Duration = time.Since(start)
	return results
}

// transferWithRetries re-submits after a conflict; the ledger itself never retries.
func transferWithRetries(ctx context.Context, c *client.Client, req models.TransferRequest, key string, retries int, results *stressResults) {
	for attempt := 0; ; attempt++ {
		result, err := c.Transfer(ctx, req, key)
		switch {
		case err != nil:
			zap.L().Warn("Transfer request failed", zap.Stringer("request", req), zap.Error(err))
			atomic.AddInt32(&results.Failed, 1)
			return
		case result.Ok():
			atomic.AddInt32(&results.Committed, 1)
			return
		case result.Kind == models.KindConflict:
			atomic.AddInt32(&results.Conflicts, 1)
			if attempt < retries {
				atomic.AddInt32(&results.Retried, 1)
				continue
			}
			return
		case result.Kind == models.KindValidation:
			atomic.AddInt32(&results.Rejected, 1)
			return
		default:
			zap.L().Warn("Transfer failed", zap.Stringer("request", req), zap.String("message", result.Message))
			atomic.AddInt32(&results.Failed, 1)
			return
		}
	}
}
