// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"grantbr-workers/internal/common/camunda"
	"grantbr-workers/internal/common/config"
	"grantbr-workers/internal/common/database"
	"grantbr-workers/internal/common/logger"
	"grantbr-workers/internal/common/observability"
	"grantbr-workers/internal/common/validation"

	// Matching Workers (3)
	cms "grantbr-workers/internal/workers/matching/calculate-match-score"
	cgr "grantbr-workers/internal/workers/matching/compose-grant-rating"
	ro "grantbr-workers/internal/workers/matching/rank-opportunities"

	// Data Access Workers (1)
	qg "grantbr-workers/internal/workers/data-access/query-grants"

	// Communication Workers (1)
	nm "grantbr-workers/internal/workers/communication/notify-match"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zeebeClient := camundaClient.GetClient()
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- START: Register ALL 5 Workers ---
	var activeWorkers []*camunda.CamundaWorker
	addWorker := func(w *camunda.CamundaWorker) {
		if w != nil {
			activeWorkers = append(activeWorkers, w)
		}
	}

	inputSchemas, err := validation.LoadActivitySchemas("configs/activity-registry.json")
	if err != nil {
		zapLog.Warn("activity registry not loaded, input validation disabled", zap.Error(err))
	}
	withSchema := func(taskType string, handle camunda.HandlerFunc) camunda.HandlerFunc {
		schema, ok := inputSchemas[taskType]
		if !ok {
			return handle
		}
		return camunda.WithInputValidation(taskType, schema, zapLog, handle)
	}

	// --- 1. Matching Workers (3) ---
	if cfg.Workers[cms.TaskType].Enabled {
		handler := cms.NewHandler(
			&cms.Config{
				CacheTTL: time.Duration(cfg.Matching.CacheTTL) * time.Second,
				Timeout:  time.Duration(cfg.Workers[cms.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, redis.Client, log,
		)
		addWorker(startWorker(zeebeClient, cms.TaskType, cfg.Workers[cms.TaskType], withSchema(cms.TaskType, handler.Handle), zapLog))
	}

	if cfg.Workers[cgr.TaskType].Enabled {
		handler := cgr.NewHandler(
			&cgr.Config{
				Timeout: time.Duration(cfg.Workers[cgr.TaskType].Timeout) * time.Millisecond,
			},
			log,
		)
		addWorker(startWorker(zeebeClient, cgr.TaskType, cfg.Workers[cgr.TaskType], withSchema(cgr.TaskType, handler.Handle), zapLog))
	}

	if cfg.Workers[ro.TaskType].Enabled {
		handler := ro.NewHandler(
			&ro.Config{
				MinVisibleScore: cfg.Matching.MinVisibleScore,
				MaxItems:        cfg.Matching.TopOpportunities,
				Concurrency:     cfg.Matching.RankingConcurrency,
				Timeout:         time.Duration(cfg.Workers[ro.TaskType].Timeout) * time.Millisecond,
			},
			log,
		)
		addWorker(startWorker(zeebeClient, ro.TaskType, cfg.Workers[ro.TaskType], withSchema(ro.TaskType, handler.Handle), zapLog))
	}

	// --- 2. Data Access Workers (1) ---
	if cfg.Workers[qg.TaskType].Enabled {
		handler := qg.NewHandler(
			&qg.Config{
				Timeout: time.Duration(cfg.Workers[qg.TaskType].Timeout) * time.Millisecond,
			},
			esClient.Client, log,
		)
		addWorker(startWorker(zeebeClient, qg.TaskType, cfg.Workers[qg.TaskType], withSchema(qg.TaskType, handler.Handle), zapLog))
	}

	// --- 3. Communication Workers (1) ---
	if cfg.Workers[nm.TaskType].Enabled {
		handler, err := nm.NewHandler(
			&nm.Config{
				EmailEnabled:         cfg.Notifications.Email.Enabled,
				SMSEnabled:           cfg.Notifications.SMS.Enabled,
				FromEmail:            cfg.Notifications.Email.FromEmail,
				AWSRegion:            cfg.Notifications.AWS.Region,
				MinMatchScore:        cfg.Matching.NotificationThreshold,
				SMSPriorityThreshold: cfg.Notifications.SMS.PriorityThreshold,
				Timeout:              time.Duration(cfg.Workers[nm.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		)
		if err != nil {
			zapLog.Fatal("failed to create notify-match handler", zap.Error(err))
		}
		addWorker(startWorker(zeebeClient, nm.TaskType, cfg.Workers[nm.TaskType], withSchema(nm.TaskType, handler.Handle), zapLog))
	}

	zapLog.Info("All 5 workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := camundaClient.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		for _, w := range activeWorkers {
			w.Close()
		}
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		zapLog.Warn("timed out waiting for workers to drain")
	}

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc camunda.HandlerFunc, log *zap.Logger) *camunda.CamundaWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return nil
	}

	return camunda.NewWorker(
		client,
		taskType,
		wcfg.MaxJobsActive,
		time.Duration(wcfg.Timeout)*time.Millisecond,
		handlerFunc,
		log,
	)
}
