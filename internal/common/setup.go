package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ledger-exchange-go/internal/api"
	"ledger-exchange-go/internal/audit"
	"ledger-exchange-go/internal/database"
	"ledger-exchange-go/internal/exchange"
	"ledger-exchange-go/internal/models"
	"ledger-exchange-go/internal/postgres"
	"ledger-exchange-go/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services is the wiring context built once at startup and handed to
// whatever needs it. Redis and Auditor are nil unless enabled.
type Services struct {
	Ledger      store.LedgerStore
	Coordinator *exchange.Coordinator
	Accounts    *api.AccountService
	Redis       *redis.Client
	Auditor     *audit.Auditor
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeLedger opens the configured backend and ensures the schema exists.
func InitializeLedger(ctx context.Context, cfg models.DatabaseConfig) (store.LedgerStore, error) {
	switch cfg.Backend {
	case models.BackendSQLite, "":
		return database.NewService(ctx, cfg)
	case models.BackendPostgres:
		return postgres.NewService(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported ledger backend %q", cfg.Backend)
	}
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	ledger, err := InitializeLedger(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	var opts []exchange.Option
	if cfg.Ledger.SerializeTransfers {
		opts = append(opts, exchange.WithSerializedTransfers())
	}
	coordinator := exchange.NewCoordinator(ledger, opts...)

	services := &Services{
		Ledger:      ledger,
		Coordinator: coordinator,
		Accounts:    api.NewAccountService(ledger, coordinator),
	}

	if cfg.Server.RedisAddr != "" {
		zap.L().Info("Connecting to Redis", zap.String("addr", cfg.Server.RedisAddr))
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Server.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			services.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Server.RedisAddr, err)
		}
		services.Redis = rdb
	}

	if cfg.Ledger.AuditInterval > 0 {
		services.Auditor = audit.NewAuditor(ledger, cfg.Ledger.AuditInterval)
	}

	zap.L().Info("Services initialized",
		zap.String("backend", cfg.Database.Backend),
		zap.Bool("serialized_transfers", coordinator.Serialized()),
		zap.Bool("idempotency", services.Redis != nil),
		zap.Bool("auditor", services.Auditor != nil))

	return services, nil
}

// InitializeDatabaseOnly opens just the ledger store, for tools that do not
// need the rest of the services.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (store.LedgerStore, error) {
	return InitializeLedger(ctx, cfg.Database)
}

func (cs *Services) Close() {
	if cs.Auditor != nil {
		cs.Auditor.Stop()
	}
	if cs.Redis != nil {
		if err := cs.Redis.Close(); err != nil {
			zap.L().Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if cs.Ledger != nil {
		cs.Ledger.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
