package common

import (
	"context"
	"fmt"

	"ledger-exchange-go/internal/api"
	"ledger-exchange-go/internal/models"

	"go.uber.org/zap"
)

// LoadAccounts returns one account when idFilter is positive, otherwise the
// whole ledger. An empty ledger is not an error here.
func LoadAccounts(ctx context.Context, svc *api.AccountService, idFilter int64) ([]models.Account, error) {
	if idFilter > 0 {
		zap.L().Info("Looking up account", zap.Int64("account_id", idFilter))
		result := svc.GetAccount(ctx, idFilter)
		if !result.Ok() {
			return nil, fmt.Errorf("account lookup failed: %s", result.Message)
		}
		return []models.Account{*result.Account}, nil
	}

	result := svc.GetAllAccounts(ctx)
	if !result.Ok() {
		if result.Kind == models.KindNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list accounts: %s", result.Message)
	}

	zap.L().Info("Retrieved accounts", zap.Int("count", len(result.Accounts)))
	return result.Accounts, nil
}
