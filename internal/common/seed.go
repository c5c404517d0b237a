package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ledger-exchange-go/internal/api"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// SeedAccount is one entry of the seed file. Balances are written as strings
// in YAML ("100.10") so they never pass through a float.
type SeedAccount struct {
	Name    string `yaml:"name"`
	Balance string `yaml:"balance"`
}

type SeedConfig struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

func LoadSeedAccounts(seedFile string) ([]SeedAccount, error) {
	var seedPath string
	if filepath.IsAbs(seedFile) {
		seedPath = seedFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		seedPath = filepath.Join(wd, seedFile)
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", seedFile, err)
	}

	var config SeedConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", seedFile, err)
	}

	for i, account := range config.Accounts {
		if strings.TrimSpace(account.Name) == "" {
			return nil, fmt.Errorf("account at index %d missing name", i)
		}
		if _, err := account.Amount(); err != nil {
			return nil, fmt.Errorf("account at index %d: %w", i, err)
		}
	}

	return config.Accounts, nil
}

// Amount parses the seed balance; an empty balance means zero.
func (a SeedAccount) Amount() (decimal.Decimal, error) {
	if strings.TrimSpace(a.Balance) == "" {
		return decimal.Zero, nil
	}
	balance, err := decimal.NewFromString(strings.TrimSpace(a.Balance))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid balance %q for %s: %w", a.Balance, a.Name, err)
	}
	return balance, nil
}

// SeedLedger inserts every seed account through the account service and
// returns how many were created.
func SeedLedger(ctx context.Context, svc *api.AccountService, accounts []SeedAccount) (int, error) {
	created := 0
	for _, seed := range accounts {
		balance, err := seed.Amount()
		if err != nil {
			return created, err
		}
		result := svc.InsertAccount(ctx, seed.Name, balance)
		if !result.Ok() {
			return created, fmt.Errorf("failed to seed %s: %s", seed.Name, result.Message)
		}
		zap.L().Info("Seeded account",
			zap.Int64("account_id", result.Account.Id),
			zap.String("name", result.Account.Name),
			zap.String("balance", result.Account.Balance.String()))
		created++
	}
	return created, nil
}
