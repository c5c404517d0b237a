// Package exchange moves funds between two accounts with optimistic
// concurrency: read both rows, validate, then commit a conditional write that
// only succeeds if neither row changed since the read. Conflicts are reported,
// never retried here.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ledger-exchange-go/internal/models"
	"ledger-exchange-go/internal/store"

	"go.uber.org/zap"
)

type Coordinator struct {
	ledger store.LedgerStore

	// legacy serialized mode, off unless WithSerializedTransfers is passed
	serialize bool
	mu        sync.Mutex
}

type Option func(*Coordinator)

// WithSerializedTransfers runs every transfer under one process-wide mutex.
// Degraded compatibility mode: only one transfer is in flight at a time.
func WithSerializedTransfers() Option {
	return func(c *Coordinator) {
		c.serialize = true
	}
}

func NewCoordinator(ledger store.LedgerStore, opts ...Option) *Coordinator {
	c := &Coordinator{ledger: ledger}
	for _, opt := range opts {
		opt(c)
	}
	if c.serialize {
		zap.L().Warn("Transfers are serialized behind a global lock (legacy mode)")
	}
	return c
}

// Serialized reports whether the legacy global lock is enabled.
func (c *Coordinator) Serialized() bool {
	return c.serialize
}

// Transfer performs one read-validate-conditional-write attempt.
func (c *Coordinator) Transfer(ctx context.Context, req models.TransferRequest) models.Result {
	// Checked before any read or arithmetic: an unbounded exponent makes
	// every comparison rescale to it.
	if !models.WithinPrecision(req.Amount) {
		zap.L().Warn("Transfer amount out of precision bounds",
			zap.Int64("from_id", req.FromAccountId),
			zap.Int64("to_id", req.ToAccountId),
			zap.Int32("exponent", req.Amount.Exponent()))
		return models.Failure(models.KindValidation, models.PrecisionMessage("Amount"))
	}

	if c.serialize {
		c.mu.Lock()
		defer c.mu.Unlock()
	}

	from, failure, ok := c.read(ctx, req.FromAccountId)
	if !ok {
		return failure
	}
	to, failure, ok := c.read(ctx, req.ToAccountId)
	if !ok {
		return failure
	}

	if from.Id == to.Id {
		return c.fail(req, models.KindValidation,
			fmt.Sprintf("Cannot exchange within the same account %d", from.Id))
	}
	if !req.Amount.IsPositive() {
		return c.fail(req, models.KindValidation,
			fmt.Sprintf("Invalid amount for %s. Requested amount - %s", from.Name, req.Amount.String()))
	}
	// Strict: moving the whole balance is rejected too.
	if !req.Amount.LessThan(from.Balance) {
		return c.fail(req, models.KindValidation,
			fmt.Sprintf("Not enough money to perform operation for %s. Requested amount - %s", from.Name, req.Amount.String()))
	}

	params := store.DualUpdateParams{
		FromId:         from.Id,
		FromOldBalance: from.Balance,
		FromNewBalance: from.Balance.Sub(req.Amount),
		ToId:           to.Id,
		ToOldBalance:   to.Balance,
		ToNewBalance:   to.Balance.Add(req.Amount),
	}

	zap.L().Debug("Transferring",
		zap.String("amount", req.Amount.String()),
		zap.String("from", from.Name),
		zap.String("to", to.Name))

	applied, err := c.ledger.ConditionalDualUpdate(ctx, params)
	if err != nil {
		zap.L().Error("Conditional update failed", zap.Stringer("request", req), zap.Error(err))
		return c.fail(req, models.KindPersistence,
			fmt.Sprintf("Couldn't perform exchange for request: %s", req.String()))
	}
	if applied != 2 {
		return c.fail(req, models.KindConflict, models.MessageUpdateConflicted)
	}

	zap.L().Info("Exchange completed",
		zap.Int64("from_id", from.Id),
		zap.Int64("to_id", to.Id),
		zap.String("amount", req.Amount.String()))
	return models.Success(models.MessageExchangeDone)
}

// read returns the account snapshot or the failure result to hand back.
func (c *Coordinator) read(ctx context.Context, id int64) (*models.Account, models.Result, bool) {
	account, err := c.ledger.GetAccount(ctx, id)
	if err == nil {
		return account, models.Result{}, true
	}
	if errors.Is(err, store.ErrAccountNotFound) {
		zap.L().Warn("Exchange references unknown account", zap.Int64("account_id", id))
		return nil, models.Failure(models.KindNotFound, models.NotFoundMessage(id)), false
	}
	zap.L().Error("Failed to read account for exchange", zap.Int64("account_id", id), zap.Error(err))
	return nil, models.Failure(models.KindPersistence, models.MessageStorageError), false
}

func (c *Coordinator) fail(req models.TransferRequest, kind models.ErrorKind, message string) models.Result {
	zap.L().Warn(message,
		zap.Stringer("kind", kind),
		zap.Int64("from_id", req.FromAccountId),
		zap.Int64("to_id", req.ToAccountId),
		zap.String("amount", req.Amount.String()))
	return models.Failure(kind, message)
}
