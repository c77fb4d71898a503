package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ChristianRende22/ClinicaDental-sub000/internal/api"
	"github.com/ChristianRende22/ClinicaDental-sub000/internal/appointment"
	"github.com/ChristianRende22/ClinicaDental-sub000/internal/config"
	"github.com/ChristianRende22/ClinicaDental-sub000/internal/db"
	"github.com/ChristianRende22/ClinicaDental-sub000/internal/logger"
	"github.com/ChristianRende22/ClinicaDental-sub000/internal/metrics"
	redisclient "github.com/ChristianRende22/ClinicaDental-sub000/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("api-server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("lock_backend", cfg.LockBackend),
		zap.Duration("reference_cache_ttl", cfg.ReferenceCacheTTL),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: cfg.PostgresMaxConns})
	cancelPg()
	if err != nil {
		return err
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	applied, err := db.Migrate(rootCtx, pgPool)
	if err != nil {
		return err
	}
	log.Info("schema up to date", zap.Ints("applied", applied))

	// Connect Redis only when something needs it
	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb, err = redisclient.NewRedisClient(rootCtx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("error closing redis", zap.Error(err))
			}
		}()
		log.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector("clinic", reg)

	repo := appointment.NewPgRepository(pgPool)

	var refs appointment.ReferenceProvider = repo
	if cfg.ReferenceCacheTTL > 0 {
		refs = redisclient.NewCachedProvider(repo, rdb, cfg.ReferenceCacheTTL, log.Named("refcache"))
	}

	var opts []appointment.Option
	if cfg.LockBackend == config.LockBackendRedis {
		opts = append(opts, appointment.WithLocker(redisclient.NewDoctorLocker(rdb, redisclient.LockOptions{
			TTL:     cfg.LockTTL,
			MaxWait: cfg.LockWait,
			OnWait:  collector.ObserveLockWait,
			OnHeld:  collector.ObserveLockHeld,
		})))
	}

	registry := appointment.NewRegistry(refs, repo, opts...)
	slots := appointment.NewSlotBook(refs, repo, opts...)

	loadCtx, cancelLoad := context.WithTimeout(rootCtx, 30*time.Second)
	defer cancelLoad()
	if err := registry.Load(loadCtx); err != nil {
		return err
	}
	if err := slots.Load(loadCtx); err != nil {
		return err
	}
	log.Info("schedule loaded",
		zap.Int("appointments", len(registry.ListAll())),
		zap.Int("slots", len(slots.ListAll())),
	)

	router := api.NewRouter(api.RouterConfig{
		Registry: registry,
		Slots:    slots,
		Postgres: pgPool,
		Redis:    api.RedisPinger(rdb),
		Metrics:  collector,
		Logger:   log.Named("http"),
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-rootCtx.Done():
	}

	log.Info("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
