package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/wattshare/wattshare-go/logging"
)

type AppConfigApi struct {
	Address string
	Port    int16
	// HMAC secret the identity provider signs bearer tokens with
	JwtSecret string `mapstructure:"jwt_secret"`
}

type AppConfigDatabase struct {
	Path string
	// How many days daily backup files should be stored before they get deleted
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	if d.BackupRetentionDays == nil {
		return 90
	}
	return *d.BackupRetentionDays
}

type AppConfigForecast struct {
	// Which upstream irradiance source to use: "open-meteo" or "bright-sky"
	Provider *string `mapstructure:"provider"`
	// How long a cached forecast for a coordinate stays valid
	FreshnessHours *int `mapstructure:"freshness_hours"`
	// Caller-side timeout for upstream calls in seconds
	TimeoutSeconds *int `mapstructure:"timeout_seconds"`
}

func (f AppConfigForecast) GetProvider() string {
	if f.Provider == nil {
		return "open-meteo"
	}
	return strings.ToLower(*f.Provider)
}

func (f AppConfigForecast) GetFreshness() time.Duration {
	if f.FreshnessHours == nil {
		return 6 * time.Hour
	}
	return time.Duration(*f.FreshnessHours) * time.Hour
}

func (f AppConfigForecast) GetTimeout() time.Duration {
	if f.TimeoutSeconds == nil {
		return 10 * time.Second
	}
	return time.Duration(*f.TimeoutSeconds) * time.Second
}

type AppConfigRecorder struct {
	// Cron expression for the historical data job, default every 15 minutes
	RunAt *string `mapstructure:"run_at"`
	// Bounded retry for one job run
	RetryAttempts *int `mapstructure:"retry_attempts"`
	// Fixed delay between attempts in seconds
	RetryDelaySeconds *int `mapstructure:"retry_delay_seconds"`
	// Max rows per insert batch
	BatchSize *int `mapstructure:"batch_size"`
}

func (r AppConfigRecorder) GetRunAt() string {
	if r.RunAt == nil {
		return "*/15 * * * *"
	}
	return *r.RunAt
}

func (r AppConfigRecorder) GetRetryAttempts() int {
	if r.RetryAttempts == nil {
		return 3
	}
	return *r.RetryAttempts
}

func (r AppConfigRecorder) GetRetryDelay() time.Duration {
	if r.RetryDelaySeconds == nil {
		return time.Second
	}
	return time.Duration(*r.RetryDelaySeconds) * time.Second
}

func (r AppConfigRecorder) GetBatchSize() int {
	if r.BatchSize == nil {
		return 1000
	}
	return *r.BatchSize
}

type AppConfigTelemetry struct {
	Enabled  bool
	Host     string
	Port     int16
	Username string
	Password string
	// Topic prefix the inverter gateways publish measured power on
	TopicPrefix *string `mapstructure:"topic_prefix"`
}

func (t AppConfigTelemetry) GetTopicPrefix() string {
	if t.TopicPrefix == nil {
		return "wattshare/plants"
	}
	return *t.TopicPrefix
}

type AppConfigLogging struct {
	// Min log level for database: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for the console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	return logging.LevelFromString(l.DbLevel)
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if l.DbAttrsFormat == nil {
		return "JSON"
	}
	if strings.EqualFold(*l.DbAttrsFormat, "text") {
		return "TEXT"
	}
	return "JSON"
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

type AppConfig struct {
	Api       AppConfigApi
	Database  AppConfigDatabase
	Forecast  AppConfigForecast
	Recorder  AppConfigRecorder
	Telemetry AppConfigTelemetry
	Logging   AppConfigLogging
}

func Load(path string) (*AppConfig, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath("config")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var c AppConfig

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}

	return &c, nil
}
