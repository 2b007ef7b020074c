// Command server runs the Helios gateway: an auditable proxy between the
// portal's callers and the upstream admin APIs.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helios/internal/actor"
	keystore "helios/internal/actor/store/keys"
	revocationstore "helios/internal/actor/store/revocation"
	"helios/internal/audit"
	audithandler "helios/internal/audit/handler"
	auditpostgres "helios/internal/audit/store/postgres"
	credstore "helios/internal/credentials/store"
	"helios/internal/dirsync"
	syncpostgres "helios/internal/dirsync/store/postgres"
	"helios/internal/gateway"
	gatewayhandler "helios/internal/gateway/handler"
	jwttoken "helios/internal/jwt_token"
	"helios/internal/platform/config"
	"helios/internal/platform/httpserver"
	"helios/internal/platform/kafka"
	"helios/internal/platform/logger"
	"helios/internal/platform/metrics"
	"helios/internal/platform/postgres"
	"helios/internal/platform/redis"
	"helios/internal/registry"
	"helios/internal/token"
	httptransport "helios/internal/transport/http"
	"helios/internal/upstream"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return err
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	reg, err := loadRegistry(cfg, log)
	if err != nil {
		return err
	}

	m := metrics.New()

	var revocation actor.TokenRevocationChecker
	if redisClient != nil {
		revocation = revocationstore.NewRedis(redisClient.Client)
	} else {
		log.Warn("redis not configured, session revocation checks disabled")
	}

	sessions := jwttoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	resolver := actor.NewResolver(sessions, revocation, keystore.NewPostgres(db), log)

	exchanger := token.NewOAuthExchanger(credstore.NewPostgres(db), log)
	tokenCache := token.NewCache(exchanger, token.WithMetrics(m))
	invoker := upstream.NewInvoker(tokenCache, cfg.UpstreamTimeout, log)

	recorderOpts := []audit.RecorderOption{audit.WithMetrics(m)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaClient, err := kafka.NewClient(cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		if err := kafka.EnsureTopic(ctx, kafkaClient, cfg.AuditTopic); err != nil {
			return err
		}
		publisher := audit.NewKafkaPublisher(kafkaClient, cfg.AuditTopic, log)
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := publisher.Close(flushCtx); err != nil {
				log.Warn("audit publisher close failed", "error", err)
			}
		}()
		recorderOpts = append(recorderOpts, audit.WithPublisher(publisher))
		log.Info("audit stream fan-out enabled", "topic", cfg.AuditTopic)
	}
	recorder := audit.NewRecorder(auditpostgres.New(db), log, recorderOpts...)

	syncSvc := dirsync.NewService(
		syncpostgres.New(db),
		dirsync.DirectoryExtractors(),
		log,
		dirsync.WithMetrics(m),
	)

	dispatcher := gateway.NewDispatcher(resolver, reg, invoker, recorder, syncSvc,
		gateway.WithMetrics(m))

	checks := map[string]httptransport.HealthChecker{
		"postgres": dbHealth{db},
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Gateway:        gatewayhandler.New(dispatcher, reg, log),
		Audit:          audithandler.New(recorder, log),
		Sessions:       sessions,
		Logger:         log,
		RequestTimeout: 15 * time.Second,
		HealthChecks:   checks,
	})

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("helios gateway listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadRegistry(cfg config.Config, log *slog.Logger) (*registry.Registry, error) {
	if cfg.RegistryFile == "" {
		return registry.Default(), nil
	}
	reg, err := registry.LoadFile(cfg.RegistryFile)
	if err != nil {
		return nil, err
	}
	log.Info("upstream registry loaded", "file", cfg.RegistryFile, "families", len(reg.Families()))

	var known []string
	for _, ex := range dirsync.DirectoryExtractors() {
		known = append(known, ex.Name)
	}
	for family, names := range reg.UnknownExtractors(known) {
		log.Warn("registry names unknown extractors, sync stays off for them",
			"family", family, "extractors", names)
	}
	return reg, nil
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
