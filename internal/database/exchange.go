package database

import (
	"context"
	"fmt"

	"ledger-exchange-go/internal/store"

	"go.uber.org/zap"
)

// ConditionalDualUpdate applies both balance changes inside one transaction.
// Each row is gated on its own observed balance; unless both rows match, the
// transaction is rolled back and 0 is returned.
func (s *Service) ConditionalDualUpdate(ctx context.Context, params store.DualUpdateParams) (int64, error) {
	zap.L().Debug("Conditional dual update",
		zap.Int64("from_id", params.FromId),
		zap.String("from_old_balance", params.FromOldBalance.String()),
		zap.String("from_new_balance", params.FromNewBalance.String()),
		zap.Int64("to_id", params.ToId),
		zap.String("to_old_balance", params.ToOldBalance.String()),
		zap.String("to_new_balance", params.ToNewBalance.String()))

	// Start database transaction for atomicity
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	updates := []struct {
		id         int64
		oldBalance string
		newBalance string
	}{
		{params.FromId, params.FromOldBalance.String(), params.FromNewBalance.String()},
		{params.ToId, params.ToOldBalance.String(), params.ToNewBalance.String()},
	}

	var applied int64
	for _, u := range updates {
		result, err := tx.ExecContext(ctx, queryConditionalUpdateBalance, u.newBalance, u.id, u.oldBalance)
		if err != nil {
			return 0, fmt.Errorf("failed to update balance for account %d: %w", u.id, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to check rows affected: %w", err)
		}
		applied += rowsAffected
	}

	if applied != 2 {
		zap.L().Info("Conditional update rejected, snapshot is stale",
			zap.Int64("from_id", params.FromId),
			zap.Int64("to_id", params.ToId),
			zap.Int64("matched_rows", applied))
		return 0, nil
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Balances updated",
		zap.Int64("from_id", params.FromId),
		zap.String("from_new_balance", params.FromNewBalance.String()),
		zap.Int64("to_id", params.ToId),
		zap.String("to_new_balance", params.ToNewBalance.String()))

	return applied, nil
}
