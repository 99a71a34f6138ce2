// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Artifacts     ArtifactsConfig    `mapstructure:"artifacts"`
	ETL           ETLConfig          `mapstructure:"etl"`
	Quality       QualityConfig      `mapstructure:"quality"`
	Camunda       CamundaConfig      `mapstructure:"camunda"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	HTTP          HTTPConfig         `mapstructure:"http"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// ElasticsearchConfig is optional; an empty address list disables report indexing.
type ElasticsearchConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	RunsIndex    string   `mapstructure:"runs_index"`
	QualityIndex string   `mapstructure:"quality_index"`
}

// Enabled reports whether any Elasticsearch node is configured.
func (e ElasticsearchConfig) Enabled() bool {
	return len(e.Addresses) > 0
}

// RedisConfig is optional; an empty address disables caching.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Pipeline Configuration ---

// ArtifactsConfig points at the scoring artifact manifest.
type ArtifactsConfig struct {
	ManifestPath string `mapstructure:"manifest_path"`
}

// ETLConfig controls the daily batch scoring job.
type ETLConfig struct {
	Schedule       string `mapstructure:"schedule"`
	ScoringWorkers int    `mapstructure:"scoring_workers"`
	MaxRetries     int    `mapstructure:"max_retries"`
	RetryDelay     int    `mapstructure:"retry_delay"` // milliseconds
	RunTimeout     int    `mapstructure:"run_timeout"` // milliseconds
}

// QualityConfig controls the data-quality monitoring job.
type QualityConfig struct {
	Schedule           string `mapstructure:"schedule"`
	MaxRetries         int    `mapstructure:"max_retries"`
	RetryDelay         int    `mapstructure:"retry_delay"` // milliseconds
	RunTimeout         int    `mapstructure:"run_timeout"` // milliseconds
	AttentionThreshold int    `mapstructure:"attention_threshold"`
	ReportCacheTTL     int    `mapstructure:"report_cache_ttl"`  // milliseconds
	SummaryCacheTTL    int    `mapstructure:"summary_cache_ttl"` // milliseconds
}

type CamundaConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	BrokerAddress   string `mapstructure:"broker_address"`
	ETLTaskType     string `mapstructure:"etl_task_type"`
	QualityTaskType string `mapstructure:"quality_task_type"`
	MaxJobsActive   int    `mapstructure:"max_jobs_active"`
	Timeout         int    `mapstructure:"timeout"` // milliseconds
}

// NotificationConfig holds alerting settings.
type NotificationConfig struct {
	Region string `mapstructure:"region"`
	SNS    struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	SES struct {
		Enabled   bool     `mapstructure:"enabled"`
		FromEmail string   `mapstructure:"from_email"`
		To        []string `mapstructure:"to"`
	} `mapstructure:"ses"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
