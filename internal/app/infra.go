package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/cogniscreen/config"
	"github.com/Alijeyrad/cogniscreen/internal/events"
	"github.com/Alijeyrad/cogniscreen/pkg/database"
	"github.com/Alijeyrad/cogniscreen/pkg/kv"
	"github.com/Alijeyrad/cogniscreen/pkg/observability"
	redispkg "github.com/Alijeyrad/cogniscreen/pkg/redis"
	s3pkg "github.com/Alijeyrad/cogniscreen/pkg/s3"
)

// InfraModule provides all infrastructure dependencies. Optional backends
// (redis, postgres, nats, s3, otel) are provided as nil when not configured.
var InfraModule = fx.Module("infra",
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideSQL),
	fx.Provide(ProvideStore),
	fx.Provide(ProvideNatsClient),
	fx.Provide(ProvidePublisher),
	fx.Provide(ProvideS3Client),
	fx.Provide(ProvideOTel),
)

// ProvideRedis connects only when redis is the storage driver.
func ProvideRedis(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	if cfg.Storage.Driver != config.DriverRedis {
		return nil, nil
	}
	rdb, err := redispkg.New(context.Background(), cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing Redis connection")
			return rdb.Close()
		},
	})
	return rdb, nil
}

// ProvideSQL connects only when postgres is the storage driver.
func ProvideSQL(lc fx.Lifecycle, cfg *config.Config) (*sql.DB, error) {
	if cfg.Storage.Driver != config.DriverPostgres {
		return nil, nil
	}
	db, err := database.Open(context.Background(), cfg.Database)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing database connection")
			return db.Close()
		},
	})
	return db, nil
}

func ProvideStore(lc fx.Lifecycle, cfg *config.Config, rdb *redis.Client, db *sql.DB) (kv.Store, error) {
	ctx := context.Background()
	switch cfg.Storage.Driver {
	case config.DriverRedis:
		return kv.NewRedis(rdb), nil
	case config.DriverPostgres:
		s := kv.NewPostgres(db)
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		s, err := kv.OpenSQLite(ctx, cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				slog.Debug("closing sqlite store")
				return s.Close()
			},
		})
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// OpenStore opens the configured backend outside of fx, for terminal
// commands. The returned func releases it.
func OpenStore(ctx context.Context, cfg *config.Config) (kv.Store, func() error, error) {
	switch cfg.Storage.Driver {
	case config.DriverRedis:
		rdb, err := redispkg.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return kv.NewRedis(rdb), rdb.Close, nil
	case config.DriverPostgres:
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		s := kv.NewPostgres(db)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil
	case config.DriverSQLite:
		s, err := kv.OpenSQLite(ctx, cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// ConnectNats returns nil when no URL is configured.
func ConnectNats(cfg *config.Config) (*nats.Conn, error) {
	if cfg.Nats.URL == "" {
		return nil, nil
	}
	return nats.Connect(cfg.Nats.URL, nats.Name(cfg.Observability.ServiceName))
}

func ProvideNatsClient(lc fx.Lifecycle, cfg *config.Config) (*nats.Conn, error) {
	nc, err := ConnectNats(cfg)
	if err != nil || nc == nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("draining NATS connection")
			return nc.Drain()
		},
	})
	return nc, nil
}

func ProvidePublisher(nc *nats.Conn, cfg *config.Config) *events.Publisher {
	return events.NewPublisher(nc, cfg.Nats.SubjectPrefix)
}

func ProvideS3Client(cfg *config.Config) (*s3pkg.Client, error) {
	if !s3pkg.Enabled(cfg.S3) {
		return nil, nil
	}
	return s3pkg.New(context.Background(), cfg.S3)
}

func ProvideOTel(lc fx.Lifecycle, cfg *config.Config) (*observability.Provider, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	provider, err := observability.Init(context.Background(), cfg.Observability, cfg.Server.Environment)
	if err != nil {
		return nil, err
	}
	slog.Info("observability initialized",
		"tracing", cfg.Observability.Tracing.Enabled,
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("shutting down observability providers")
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}
