package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// InitSchema creates the accounts table if it does not exist yet.
func (s *Service) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, queryCreateAccountsTable); err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}
	return nil
}

// Reset drops every account and recreates the table. Ids restart from 1.
// Maintenance and tests only.
func (s *Service) Reset(ctx context.Context) error {
	zap.L().Warn("Resetting ledger: dropping all accounts")

	if _, err := s.db.ExecContext(ctx, queryDropAccountsTable); err != nil {
		return fmt.Errorf("failed to drop accounts table: %w", err)
	}
	return s.InitSchema(ctx)
}
