// cmd/pipeline-manager/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"loan-pipeline/internal/api"
	"loan-pipeline/internal/common/camunda"
	"loan-pipeline/internal/common/config"
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/common/retry"
	"loan-pipeline/internal/models"
	"loan-pipeline/internal/scheduler"
)

const (
	modeScheduled = "scheduled"
	modeETL       = "etl"
	modeMonitor   = "monitor"
	modeZeebe     = "zeebe"
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
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	mode := flag.String("mode", modeScheduled, "scheduled | etl | monitor | zeebe")
	configPath := flag.String("config", "", "path to a config file (default: search configs/)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewFromConfig(cfg.Logging)
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting pipeline manager...", zap.String("mode", *mode), zap.String("environment", cfg.App.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	svc, err := newServices(ctx, cfg, zapLog, log)
	if err != nil {
		zapLog.Fatal("initialization failed", zap.Error(err))
	}

	code := 0
	switch *mode {
	case modeETL:
		code = runOnce(ctx, zapLog, log, models.JobETL, etlPolicy(cfg), config.GetDuration(cfg.ETL.RunTimeout), svc.runETL)
	case modeMonitor:
		code = runOnce(ctx, zapLog, log, models.JobQuality, qualityPolicy(cfg), config.GetDuration(cfg.Quality.RunTimeout), svc.runMonitor)
	case modeScheduled, modeZeebe:
		serve(ctx, cfg, zapLog, log, svc, *mode)
	default:
		zapLog.Error("unknown mode", zap.String("mode", *mode))
		code = 2
	}

	svc.Close()
	stop()
	_ = zapLog.Sync()
	os.Exit(code)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// etlPolicy spaces run-level retries by the configured fixed delay.
func etlPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{MaxRetries: cfg.ETL.MaxRetries, Delay: config.GetDuration(cfg.ETL.RetryDelay)}
}

func qualityPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{MaxRetries: cfg.Quality.MaxRetries, Delay: config.GetDuration(cfg.Quality.RetryDelay)}
}

// runOnce executes one job with its retry policy and returns the process
// exit code.
func runOnce(ctx context.Context, zapLog *zap.Logger, log logger.Logger, name string, policy retry.Policy, timeout time.Duration, run scheduler.JobFunc) int {
	err := retry.Do(ctx, policy, log, name, func(ctx context.Context) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		_, err := run(ctx)
		return err
	})
	if err != nil {
		zapLog.Error("run failed", zap.String("job", name), zap.Error(err))
		return 1
	}
	return 0
}

// serve runs until a shutdown signal: the cadence scheduler in scheduled
// mode, the Zeebe job triggers when Camunda is enabled (always in zeebe
// mode), and the HTTP API in both.
func serve(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, log logger.Logger, svc *services, mode string) {
	sched := scheduler.New(log)
	jobs := []*scheduler.Job{
		{
			Name:    models.JobETL,
			Cron:    cfg.ETL.Schedule,
			Policy:  etlPolicy(cfg),
			Timeout: config.GetDuration(cfg.ETL.RunTimeout),
			Run:     svc.runETL,
		},
		{
			Name:    models.JobQuality,
			Cron:    cfg.Quality.Schedule,
			Policy:  qualityPolicy(cfg),
			Timeout: config.GetDuration(cfg.Quality.RunTimeout),
			Run:     svc.runMonitor,
		},
	}
	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			zapLog.Fatal("job registration failed", zap.String("job", job.Name), zap.Error(err))
		}
	}

	if mode == modeScheduled {
		sched.Start(ctx)
		defer sched.Stop()
		for _, job := range jobs {
			if next, err := sched.NextRun(job.Name); err == nil {
				zapLog.Info("Job scheduled", zap.String("job", job.Name), zap.Time("nextRun", next))
			}
		}
	}

	if mode == modeZeebe || cfg.Camunda.Enabled {
		zeebe, err := startZeebe(ctx, cfg, zapLog, log, svc)
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           api.NewServer(svc.reader, svc.reportStore(), sched, svc.readiness(), log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	zapLog.Info("Pipeline manager stopped gracefully")
}

func startZeebe(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, log logger.Logger, svc *services) (*camunda.Client, error) {
	var client *camunda.Client
	err := retryWithBackoff(func() error {
		var err error
		client, err = camunda.NewClient(ctx, cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		return nil, err
	}

	timeout := config.GetDuration(cfg.Camunda.Timeout)
	backoff := config.GetDuration(cfg.ETL.RetryDelay)

	etl := camunda.NewJobTrigger(cfg.Camunda.ETLTaskType, func(ctx context.Context) (map[string]interface{}, error) {
		summary, err := svc.etl.Run(ctx)
		if summary == nil {
			return nil, err
		}
		return summary.Variables(), err
	}, timeout, backoff, log)

	quality := camunda.NewJobTrigger(cfg.Camunda.QualityTaskType, func(ctx context.Context) (map[string]interface{}, error) {
		report, err := svc.monitor.Run(ctx)
		if report == nil {
			return nil, err
		}
		return report.Variables(), err
	}, timeout, config.GetDuration(cfg.Quality.RetryDelay), log)

	etl.Open(client.GetClient(), cfg.Camunda.MaxJobsActive)
	quality.Open(client.GetClient(), cfg.Camunda.MaxJobsActive)

	zapLog.Info("Zeebe job triggers started",
		zap.String("etlTaskType", cfg.Camunda.ETLTaskType),
		zap.String("qualityTaskType", cfg.Camunda.QualityTaskType),
		zap.Int("maxJobsActive", cfg.Camunda.MaxJobsActive),
	)
	return client, nil
}
