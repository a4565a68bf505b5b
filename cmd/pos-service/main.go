package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
	poscache "github.com/radieske/numbers-lottery-pos/internal/pos-service/cache"
	httpapi "github.com/radieske/numbers-lottery-pos/internal/pos-service/http"
	"github.com/radieske/numbers-lottery-pos/internal/pos-service/producer"
	"github.com/radieske/numbers-lottery-pos/internal/pos-service/repo"
	"github.com/radieske/numbers-lottery-pos/internal/pos-service/service"
	"github.com/radieske/numbers-lottery-pos/internal/pos-service/ws"
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
		cfg.ServiceName = "pos-service"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// regras do jogo vêm do ambiente; falha aqui é erro de deploy
	slots, err := lottery.ParseSlots(cfg.DrawSlots)
	if err != nil {
		log.Fatal("invalid DRAW_SLOTS", zap.Error(err))
	}
	kind, err := lottery.ParsePolicyKind(cfg.PrizePolicy)
	if err != nil {
		log.Fatal("invalid PRIZE_POLICY", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	log.Info("postgres connected")

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pg); err != nil {
			log.Fatal("migrate failed", zap.Error(err))
		}
		log.Info("schema migrated")
	}

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected")

	if cfg.Env == "local" {
		if err := kafka.EnsureTopics(ctx, cfg.KafkaBrokers, cfg.TopicLedger, cfg.TopicLedgerDLQ); err != nil {
			log.Warn("kafka topics not ensured", zap.Error(err))
		}
	}
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicLedger)
	defer writer.Close()
	log.Info("kafka writer ready", zap.String("topic", cfg.TopicLedger))

	// métricas
	sales := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "pos_sales_total", Help: "vendas registradas (created|merged)"}, []string{"result"})
	undos := prometheus.NewCounter(prometheus.CounterOpts{Name: "pos_sales_undone_total", Help: "vendas desfeitas"})
	winners := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "pos_winners_registered_total", Help: "resultados registrados (created|updated)"}, []string{"result"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "pos_errors_total", Help: "erros inesperados por operação"}, []string{"op"})
	prometheus.MustRegister(sales, undos, winners, errorsBy)

	hooks := service.Hooks{
		OnSale:   func(created bool) { sales.WithLabelValues(outcome(created, "created", "merged")).Inc() },
		OnUndo:   func() { undos.Inc() },
		OnWinner: func(created bool) { winners.WithLabelValues(outcome(created, "created", "updated")).Inc() },
		OnError:  func(op string) { errorsBy.WithLabelValues(op).Inc() },
	}

	clock := service.NewClock(time.Now, cfg.Location())
	publ := producer.NewKafkaPublisher(writer, cfg.TopicLedger)

	settings := service.NewSettings(repo.NewSettings(pg), kind, log, hooks)
	if _, err := settings.Reload(ctx); err != nil {
		log.Fatal("settings load failed", zap.Error(err))
	}
	ledger := service.NewLedger(repo.NewSales(pg), settings, slots, clock, publ, log, hooks)
	results := service.NewResults(repo.NewResults(pg), poscache.New(redisClient, cfg.WinnerCacheTTL), slots, clock, publ, log, hooks)
	reports := service.NewReports(repo.NewSales(pg), repo.NewResults(pg), slots, clock, log, hooks)

	hub := ws.NewHub(log, func(*http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisPubSubChannel, hub, log)

	api := &httpapi.API{
		Log:      log,
		Ledger:   ledger,
		Results:  results,
		Reports:  reports,
		Settings: settings,
		WS:       hub.HandleWS,
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort,
		func(err error) { log.Error("metrics server failed", zap.Error(err)) },
		metrics.Check{Name: "postgres", Fn: pg.PingContext},
		metrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	)
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("pos-service listening",
			zap.String("addr", srv.Addr),
			zap.String("policy", string(kind)),
			zap.Strings("slots", slots.Labels()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("metrics shutdown", zap.Error(err))
	}
	log.Info("pos-service stopped")
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
