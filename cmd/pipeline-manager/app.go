// cmd/pipeline-manager/app.go
package main

import (
	"context"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"loan-pipeline/internal/api"
	"loan-pipeline/internal/common/aws"
	"loan-pipeline/internal/common/config"
	"loan-pipeline/internal/common/database"
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/common/observability"
	"loan-pipeline/internal/jobs/batchetl"
	"loan-pipeline/internal/jobs/qualitymonitor"
	"loan-pipeline/internal/notify"
	"loan-pipeline/internal/reporting"
	"loan-pipeline/internal/scoring"
	"loan-pipeline/internal/store"
)

// services holds the long-lived clients and the two jobs built on them.
type services struct {
	pg      *database.PostgresClient
	redis   *redis.Client
	es      *elasticsearch.Client
	obs     *observability.Observability
	reports *store.ReportCache
	reader  *store.ProductionReader
	etl     *batchetl.Runner
	monitor *qualitymonitor.Monitor
}

func newServices(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, log logger.Logger) (*services, error) {
	a := &services{obs: observability.New(cfg.App.Name)}

	// --- PostgreSQL (required) ---
	err := retryWithBackoff(func() error {
		var err error
		a.pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return a.pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}
	zapLog.Info("PostgreSQL connected successfully")

	if err := store.EnsureSchema(ctx, a.pg.DB); err != nil {
		a.Close()
		return nil, err
	}

	// --- Redis (optional) ---
	if a.redis = database.NewRedis(cfg.Database.Redis); a.redis != nil {
		err := retryWithBackoff(func() error {
			return database.PingRedis(ctx, a.redis)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, caching disabled", zap.Error(err))
			_ = a.redis.Close()
			a.redis = nil
		} else {
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Elasticsearch (optional) ---
	a.es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.es != nil {
		if err := database.PingElasticsearch(ctx, a.es); err != nil {
			zapLog.Warn("elasticsearch ping failed, indexing will be retried per run", zap.Error(err))
		} else {
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	notifier, err := newNotifier(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	runLog := store.NewRunLog(a.pg.DB)
	a.reader = store.NewProductionReader(a.pg.DB, a.redis, config.GetDuration(cfg.Quality.SummaryCacheTTL), log)

	etlOpts := []batchetl.Option{batchetl.WithRunLog(runLog), batchetl.WithObservability(a.obs)}
	monitorOpts := []qualitymonitor.Option{qualitymonitor.WithRunLog(runLog), qualitymonitor.WithObservability(a.obs)}

	if a.redis != nil {
		a.reports = store.NewReportCache(a.redis, config.GetDuration(cfg.Quality.ReportCacheTTL))
		monitorOpts = append(monitorOpts, qualitymonitor.WithReportCache(a.reports))
	}
	if a.es != nil {
		sink := reporting.NewElasticsearchSink(a.es, cfg.Database.Elasticsearch.RunsIndex, cfg.Database.Elasticsearch.QualityIndex, log)
		etlOpts = append(etlOpts, batchetl.WithReportSink(sink))
		monitorOpts = append(monitorOpts, qualitymonitor.WithReportSink(sink))
	}
	if notifier.Enabled() {
		etlOpts = append(etlOpts, batchetl.WithNotifier(notifier))
		monitorOpts = append(monitorOpts, qualitymonitor.WithNotifier(notifier))
	}

	etlCfg := batchetl.LoadConfig()
	etlCfg.Score.Workers = cfg.ETL.ScoringWorkers
	a.etl = batchetl.NewRunner(etlCfg, a.pg.DB, scoring.FileSource{ManifestPath: cfg.Artifacts.ManifestPath}, log, etlOpts...)

	monitorCfg := qualitymonitor.LoadConfig()
	monitorCfg.Report.AttentionThreshold = cfg.Quality.AttentionThreshold
	a.monitor = qualitymonitor.NewMonitor(monitorCfg, a.pg.DB, log, monitorOpts...)

	return a, nil
}

func newNotifier(ctx context.Context, cfg *config.Config, log logger.Logger) (*notify.Notifier, error) {
	n := cfg.Notifications

	var sns *aws.SNSClient
	if n.SNS.Enabled {
		c, err := aws.NewSNSClient(ctx, n.Region, n.SNS.TopicARN)
		if err != nil {
			return nil, err
		}
		sns = c
	}

	var ses *aws.SESClient
	if n.SES.Enabled {
		c, err := aws.NewSESClient(ctx, n.Region, n.SES.FromEmail)
		if err != nil {
			return nil, err
		}
		ses = c
	}

	return notify.NewNotifier(sns, ses, n.SES.To, log), nil
}

func (a *services) runETL(ctx context.Context) (interface{}, error) {
	return a.etl.Run(ctx)
}

func (a *services) runMonitor(ctx context.Context) (interface{}, error) {
	return a.monitor.Run(ctx)
}

// reportStore avoids handing the API a typed nil when caching is disabled.
func (a *services) reportStore() api.ReportStore {
	if a.reports == nil {
		return nil
	}
	return a.reports
}

func (a *services) readiness() map[string]api.ReadinessCheck {
	checks := map[string]api.ReadinessCheck{
		"postgres": a.pg.Ping,
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return database.PingRedis(ctx, a.redis) }
	}
	if a.es != nil {
		checks["elasticsearch"] = func(ctx context.Context) error { return database.PingElasticsearch(ctx, a.es) }
	}
	return checks
}

func (a *services) Close() {
	a.obs.Shutdown()
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pg != nil {
		_ = a.pg.Close()
	}
}
