package internal

import (
	"context"
	"fmt"
	"net"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/2beens/fitcrm/internal/config"
	"github.com/2beens/fitcrm/internal/db"
	"github.com/2beens/fitcrm/internal/storage"
)

// Backend holds the storage slot of the roster and the connections behind it.
type Backend struct {
	Slot        storage.Slot
	RedisClient *redis.Client
	DBPool      *pgxpool.Pool
}

type OpenBackendParams struct {
	Config         *config.Config
	RedisPassword  string
	TracingEnabled bool
	// Ephemeral keeps the roster in memory only, whatever the configured backend.
	Ephemeral bool
}

// OpenBackend selects the slot for the configured storage backend.
// A redis client is created whenever redis_host is set, since the rate limiter
// uses it even when the roster lives elsewhere.
func OpenBackend(ctx context.Context, params OpenBackendParams) (_ *Backend, err error) {
	cfg := params.Config
	b := &Backend{}
	defer func() {
		if err != nil {
			err = multierr.Append(err, b.Close())
		}
	}()

	if cfg.RedisHost != "" {
		b.RedisClient = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: params.RedisPassword,
			DB:       0, // use default DB
		})
		if params.TracingEnabled {
			b.RedisClient.AddHook(redisotel.NewTracingHook())
		}

		rdbStatus := b.RedisClient.Ping(ctx)
		if err := rdbStatus.Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		} else {
			log.Debugf("redis ping: %s", rdbStatus.Val())
		}
	}

	if params.Ephemeral {
		b.Slot = storage.NewMemorySlot(cfg.StorageKey)
		return b, nil
	}

	switch cfg.StorageBackend {
	case config.StorageBackendFile:
		fileSlot, err := storage.NewFileSlot(cfg.StorageDir, cfg.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("new file slot: %w", err)
		}
		b.Slot = fileSlot
	case config.StorageBackendRedis:
		if b.RedisClient == nil {
			return nil, fmt.Errorf("redis storage backend without redis_host")
		}
		b.Slot = storage.NewRedisSlot(b.RedisClient, cfg.StorageKey)
	case config.StorageBackendPostgres:
		b.DBPool, err = db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			TracingEnabled: params.TracingEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}
		if err := b.DBPool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping db: %w", err)
		}
		psqlSlot := storage.NewPsqlSlot(b.DBPool, cfg.StorageKey)
		if err := psqlSlot.EnsureTable(ctx); err != nil {
			return nil, err
		}
		b.Slot = psqlSlot
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}

	log.Debugf("roster stored in slot [%s] (%s)", b.Slot.Name(), cfg.StorageBackend)

	return b, nil
}

// Collectors returns the extra prometheus collectors the backend exposes.
func (b *Backend) Collectors(dbName string) []prometheus.Collector {
	if b.DBPool == nil {
		return nil
	}
	return []prometheus.Collector{
		pgxpoolprometheus.NewCollector(b.DBPool, map[string]string{"db_name": dbName}),
	}
}

func (b *Backend) Close() error {
	var err error
	if b.RedisClient != nil {
		if closeErr := b.RedisClient.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close redis client: %w", closeErr))
		}
		b.RedisClient = nil
	}
	if b.DBPool != nil {
		log.Debugln("closing db pool ...")
		b.DBPool.Close() // blocking operation
		b.DBPool = nil
		log.Debugln("db pool closed")
	}
	return err
}
