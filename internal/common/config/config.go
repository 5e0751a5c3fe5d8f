// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Collections   CollectionsConfig       `mapstructure:"collections"`
	Transport     TransportConfig         `mapstructure:"transport"`
	Scheduler     SchedulerConfig         `mapstructure:"scheduler"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
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

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// Enabled reports whether an Elasticsearch cluster is configured.
func (e ElasticsearchConfig) Enabled() bool {
	return e.GetURL() != ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings. Output is stdout, stderr or a file path.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// CollectionsConfig tunes the reminder engine.
type CollectionsConfig struct {
	Timezone          string      `mapstructure:"timezone"`
	Locale            string      `mapstructure:"locale"`
	CurrencySymbol    string      `mapstructure:"currency_symbol"`
	BulkThreshold     int         `mapstructure:"bulk_threshold"`
	CallTimeout       int         `mapstructure:"call_timeout"` // milliseconds
	TenantConcurrency int         `mapstructure:"tenant_concurrency"`
	ModuleKey         string      `mapstructure:"module_key"`
	ChannelCacheTTL   int         `mapstructure:"channel_cache_ttl"` // seconds
	PriorityCreation  int         `mapstructure:"priority_creation"`
	PriorityDueDate   int         `mapstructure:"priority_due_date"`
	Audit             AuditConfig `mapstructure:"audit"`
}

// Location loads the business timezone.
func (c CollectionsConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Index   string `mapstructure:"index"`
}

const (
	ProviderSNS      = "sns"
	ProviderWhatsApp = "whatsapp"
)

// TransportConfig selects the outbound message provider.
type TransportConfig struct {
	Provider    string `mapstructure:"provider"`
	CountryCode string `mapstructure:"country_code"`
	AWS         struct {
		Region   string `mapstructure:"region"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"aws"`
	WhatsApp struct {
		StoreDialect string `mapstructure:"store_dialect"`
		StoreDSN     string `mapstructure:"store_dsn"`
	} `mapstructure:"whatsapp"`
}

type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
}

type ObservabilityConfig struct {
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	MetricsAddress string `mapstructure:"metrics_address"`
}
