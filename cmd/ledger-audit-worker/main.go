package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/numbers-lottery-pos/internal/ledger-audit/consumer"
	"github.com/radieske/numbers-lottery-pos/internal/ledger-audit/pubsub"
	"github.com/radieske/numbers-lottery-pos/internal/ledger-audit/repository"
	"github.com/radieske/numbers-lottery-pos/internal/shared/cache"
	"github.com/radieske/numbers-lottery-pos/internal/shared/config"
	"github.com/radieske/numbers-lottery-pos/internal/shared/db"
	"github.com/radieske/numbers-lottery-pos/internal/shared/kafka"
	"github.com/radieske/numbers-lottery-pos/internal/shared/logger"
	"github.com/radieske/numbers-lottery-pos/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ledger-audit-worker"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pg); err != nil {
			log.Fatal("migrate failed", zap.Error(err))
		}
	}

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	if cfg.Env == "local" {
		if err := kafka.EnsureTopics(ctx, cfg.KafkaBrokers, cfg.TopicLedger, cfg.TopicLedgerDLQ); err != nil {
			log.Warn("kafka topics not ensured", zap.Error(err))
		}
	}

	// consumer group próprio: cada mensagem é auditada uma vez por grupo
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicLedger, "ledger-audit")
	defer reader.Close()

	var dlq *kafka.Writer
	if cfg.TopicLedgerDLQ != "" {
		dlq = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicLedgerDLQ)
		defer dlq.Close()
	}

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "ledger_audit_messages_consumed_total", Help: "mensagens consumidas"})
	persisted := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ledger_audit_events_persisted_total", Help: "eventos gravados por tipo"}, []string{"kind"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "ledger_audit_duplicates_total", Help: "reentregas ignoradas"})
	dlqBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ledger_audit_dlq_total", Help: "mensagens enviadas à DLQ por motivo"}, []string{"reason"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ledger_audit_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, persisted, duplicates, dlqBy, errorsBy)

	repo := repository.NewPostgresRepo(pg)
	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Repo:        repo,
		Broadcast:   pubsub.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel),
		OnConsumed:  func() { consumed.Inc() },
		OnPersist:   func(kind string) { persisted.WithLabelValues(kind).Inc() },
		OnDuplicate: func() { duplicates.Inc() },
		OnDLQ:       func(reason string) { dlqBy.WithLabelValues(reason).Inc() },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}
	if dlq != nil {
		proc.DLQ = dlq
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort,
		func(err error) { log.Error("metrics server failed", zap.Error(err)) },
		metrics.Check{Name: "postgres", Fn: pg.PingContext},
		metrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	)

	log.Info("ledger-audit-worker started",
		zap.String("consume", cfg.TopicLedger),
		zap.String("dlq", cfg.TopicLedgerDLQ),
		zap.String("broadcast", cfg.RedisPubSubChannel),
	)
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = metricsSrv.Shutdown(shutdownCtx)
	if counts, err := repo.CountByKind(shutdownCtx); err == nil {
		log.Info("audit trail", zap.Any("events_by_kind", counts))
	}
	log.Info("ledger-audit-worker stopped")
}
