package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// JSONFileConfig holds per-date JSON file storage settings.
type JSONFileConfig struct {
	Dir        string `json:"dir" mapstructure:"dir"`
	FilePrefix string `json:"filePrefix" mapstructure:"filePrefix"`
}

// SQLiteConfig holds SQLite storage settings.
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// PostgresConfig holds PostgreSQL storage settings.
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	JSONFile JSONFileConfig `json:"jsonfile" mapstructure:"jsonfile"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// SamplingConfig holds the position sampling cadence.
type SamplingConfig struct {
	Interval         time.Duration
	AutosaveInterval time.Duration
}

// AuthConfig holds the query authorization predicate values.
type AuthConfig struct {
	AdminRole    string
	CreativeMode string
}

// DiscordConfig holds the optional audit notification sink credentials.
// Either field empty disables the sink without affecting the audit log.
type DiscordConfig struct {
	BotToken  string
	ChannelID string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// GraylogConfig holds the optional GELF log sink settings.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./pptlogs")
	viper.SetDefault("dataDir", "./pptdata")

	viper.SetDefault("server.listenAddr", ":5381")

	viper.SetDefault("sampling.intervalSeconds", 60)
	viper.SetDefault("sampling.autosaveInterval", "0")

	viper.SetDefault("auth.adminRole", "admin")
	viper.SetDefault("auth.creativeMode", "creative")

	viper.SetDefault("storage.type", "jsonfile")
	viper.SetDefault("storage.jsonfile.dir", "./pptdata")
	viper.SetDefault("storage.jsonfile.filePrefix", "playerpositions")
	viper.SetDefault("storage.sqlite.path", "./pptdata/positions.db")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "pptracker")

	viper.SetDefault("discord.botToken", "")
	viper.SetDefault("discord.channelId", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "pptracker-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "pptracker")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName("pptracker.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage section with defaults applied.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		JSONFile: JSONFileConfig{
			Dir:        viper.GetString("storage.jsonfile.dir"),
			FilePrefix: viper.GetString("storage.jsonfile.filePrefix"),
		},
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("storage.postgres.host"),
			Port:     viper.GetString("storage.postgres.port"),
			Username: viper.GetString("storage.postgres.username"),
			Password: viper.GetString("storage.postgres.password"),
			Database: viper.GetString("storage.postgres.database"),
		},
	}
}

// GetSamplingConfig returns the sampling cadence. A zero autosave interval
// disables periodic flushes (save happens on shutdown and on save triggers).
func GetSamplingConfig() SamplingConfig {
	return SamplingConfig{
		Interval:         time.Duration(viper.GetInt("sampling.intervalSeconds")) * time.Second,
		AutosaveInterval: viper.GetDuration("sampling.autosaveInterval"),
	}
}

// GetAuthConfig returns the authorization predicate values.
func GetAuthConfig() AuthConfig {
	return AuthConfig{
		AdminRole:    viper.GetString("auth.adminRole"),
		CreativeMode: viper.GetString("auth.creativeMode"),
	}
}

// GetDiscordConfig returns the Discord notification credentials.
func GetDiscordConfig() DiscordConfig {
	return DiscordConfig{
		BotToken:  viper.GetString("discord.botToken"),
		ChannelID: viper.GetString("discord.channelId"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGraylogConfig returns the GELF sink settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}
