package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"collections-reminders/internal/collections"
	"collections-reminders/internal/collections/repository"
	"collections-reminders/internal/common/aws"
	"collections-reminders/internal/common/camunda"
	"collections-reminders/internal/common/config"
	"collections-reminders/internal/common/database"
	"collections-reminders/internal/common/logger"
	"collections-reminders/internal/common/observability"
	"collections-reminders/internal/common/scheduler"
	"collections-reminders/internal/common/whatsapp"

	rs "collections-reminders/internal/workers/collections/run-sweep"
	se "collections-reminders/internal/workers/collections/set-enabled"
	tr "collections-reminders/internal/workers/collections/trigger-reminder"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOptions(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"env":     cfg.App.Environment,
	})

	log.Info("Starting reminder manager...", map[string]interface{}{"version": cfg.App.Version})

	obs, err := observability.New(cfg.App.Name, cfg.Observability.JaegerEndpoint)
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx := context.Background()

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	log.Info("PostgreSQL connected successfully", nil)

	// --- Redis (optional channel cache) ---
	redis, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis client failed", zap.Error(err))
	}
	if redis != nil {
		if err := retryWithBackoff(func() error { return redis.Ping(ctx) }, 5, 2*time.Second, log, "Redis connection"); err != nil {
			log.Warn("redis unavailable, channel cache disabled", map[string]interface{}{"error": err.Error()})
			redis.Close()
			redis = nil
		} else {
			defer redis.Close()
			log.Info("Redis connected successfully", nil)
		}
	}

	// --- Elasticsearch (optional audit trail) ---
	var esClient *database.ElasticsearchClient
	if cfg.Collections.Audit.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 10, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		log.Info("Elasticsearch connected successfully", nil)
	}

	// --- Engine ---
	var store collections.Store = repository.NewPostgresStore(pg.DB)
	if redis != nil {
		store = repository.NewCachedChannelStore(store, redis.Client, time.Duration(cfg.Collections.ChannelCacheTTL)*time.Second, log)
	}

	transport, closeTransport, err := newTransport(ctx, cfg.Transport)
	if err != nil {
		zapLog.Fatal("transport setup failed", zap.Error(err), zap.String("provider", cfg.Transport.Provider))
	}
	defer closeTransport()

	formatter, err := collections.NewFormatter(cfg.Collections.Locale, cfg.Collections.CurrencySymbol)
	if err != nil {
		zapLog.Fatal("formatter setup failed", zap.Error(err))
	}

	var audit collections.AuditSink
	if esClient != nil {
		audit = repository.NewElasticsearchAuditSink(esClient.Client, cfg.Collections.Audit.Index)
	}

	loc, err := cfg.Collections.Location()
	if err != nil {
		zapLog.Fatal("timezone load failed", zap.Error(err), zap.String("timezone", cfg.Collections.Timezone))
	}
	callTimeout := config.GetDuration(cfg.Collections.CallTimeout)
	engine := &instrumentedEngine{
		Engine: collections.NewEngine(store, transport, formatter, audit, collections.Config{
			ModuleKey:         cfg.Collections.ModuleKey,
			Location:          loc,
			CallTimeout:       callTimeout,
			TenantConcurrency: cfg.Collections.TenantConcurrency,
			Router: collections.RouterConfig{
				BulkThreshold:    cfg.Collections.BulkThreshold,
				PriorityCreation: cfg.Collections.PriorityCreation,
				PriorityDueDate:  cfg.Collections.PriorityDueDate,
				CountryCode:      cfg.Transport.CountryCode,
				CallTimeout:      callTimeout,
			},
		}, log),
		obs: obs,
	}

	// --- Daily sweep ---
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(cfg.Scheduler.Cron, loc, func(ctx context.Context) error {
			_, err := engine.Sweep(ctx, engine.Today())
			return err
		}, log)
		if err != nil {
			zapLog.Fatal("scheduler setup failed", zap.Error(err))
		}
		sched.Start()
	}

	// --- Zeebe workers ---
	var zeebe *camunda.Client
	var registry *camunda.Registry
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		log.Info("Zeebe client connected successfully", nil)

		registry = camunda.NewRegistry(zeebe.Zeebe(), log)
		startWorkers(registry, cfg, engine, log)
	}

	// --- Health / metrics ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]interface{}{"status": "healthy"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := readiness(r.Context(), pg, redis, zeebe)
		status := http.StatusOK
		for _, v := range checks {
			if v != "ok" {
				status = http.StatusServiceUnavailable
			}
		}
		body := map[string]interface{}{"status": "ready", "checks": checks}
		if sched != nil {
			body["nextSweep"] = sched.Next().Format(time.RFC3339)
		}
		if status != http.StatusOK {
			body["status"] = "not_ready"
		}
		writeStatus(w, status, body)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Observability.MetricsAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"address": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutdown signal received, stopping...", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Error("scheduler did not stop in time", map[string]interface{}{"error": err.Error()})
		}
	}
	if registry != nil {
		registry.Close()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			log.Error("Error closing Zeebe client", map[string]interface{}{"error": err.Error()})
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Reminder manager stopped gracefully", nil)
}

// newTransport builds the configured provider and a close func for it.
func newTransport(ctx context.Context, cfg config.TransportConfig) (collections.Transport, func(), error) {
	switch cfg.Provider {
	case config.ProviderWhatsApp:
		client, err := whatsapp.Connect(ctx, cfg.WhatsApp.StoreDialect, cfg.WhatsApp.StoreDSN)
		if err != nil {
			return nil, nil, err
		}
		return whatsapp.NewTransport(client), client.Disconnect, nil
	default:
		t, err := aws.NewSNSTransport(ctx, cfg.AWS.Region, cfg.AWS.SenderID)
		if err != nil {
			return nil, nil, err
		}
		return t, func() {}, nil
	}
}

func startWorkers(registry *camunda.Registry, cfg *config.Config, engine *instrumentedEngine, log logger.Logger) {
	if wcfg := config.GetWorkerConfig(cfg, rs.TaskType); wcfg.Enabled {
		handler, err := rs.NewHandler(rs.HandlerOptions{
			CustomConfig: &rs.Config{
				Enabled:       true,
				MaxJobsActive: wcfg.MaxJobsActive,
				Timeout:       config.GetDuration(wcfg.Timeout),
			},
			Engine: engine,
			Logger: log,
		})
		if err != nil {
			log.Error("failed to create run-sweep handler", map[string]interface{}{"error": err.Error()})
		} else {
			registry.Start(rs.TaskType, wcfg, handler.Handle)
		}
	}

	if wcfg := config.GetWorkerConfig(cfg, tr.TaskType); wcfg.Enabled {
		trCfg := tr.DefaultConfig()
		trCfg.MaxJobsActive = wcfg.MaxJobsActive
		trCfg.Timeout = config.GetDuration(wcfg.Timeout)
		handler, err := tr.NewHandler(tr.HandlerOptions{CustomConfig: trCfg, Engine: engine, Logger: log})
		if err != nil {
			log.Error("failed to create trigger-reminder handler", map[string]interface{}{"error": err.Error()})
		} else {
			registry.Start(tr.TaskType, wcfg, handler.Handle)
		}
	}

	if wcfg := config.GetWorkerConfig(cfg, se.TaskType); wcfg.Enabled {
		handler, err := se.NewHandler(&se.Config{
			Enabled:       true,
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
		}, engine, log)
		if err != nil {
			log.Error("failed to create set-enabled handler", map[string]interface{}{"error": err.Error()})
		} else {
			registry.Start(se.TaskType, wcfg, handler.Handle)
		}
	}

	log.Info("workers registered", map[string]interface{}{"taskTypes": registry.TaskTypes()})
}

func readiness(ctx context.Context, pg *database.PostgresClient, redis *database.RedisClient, zeebe *camunda.Client) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	checks := map[string]string{"postgres": "ok"}
	if err := pg.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
	}
	if redis != nil {
		checks["redis"] = "ok"
		if err := redis.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
		}
	}
	if zeebe != nil {
		checks["zeebe"] = "ok"
		if err := zeebe.HealthCheck(ctx); err != nil {
			checks["zeebe"] = err.Error()
		}
	}
	return checks
}

func writeStatus(w http.ResponseWriter, status int, body map[string]interface{}) {
	body["time"] = time.Now().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
