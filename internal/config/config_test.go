package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"sampling": { "intervalSeconds": 15 },
		"storage": { "type": "sqlite" }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pptracker.cfg.json"), []byte(cfg), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, 15, viper.GetInt("sampling.intervalSeconds"))
	assert.Equal(t, "sqlite", viper.GetString("storage.type"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pptracker.cfg.json"), []byte(`{}`), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./pptlogs", viper.GetString("logsDir"))
	assert.Equal(t, ":5381", viper.GetString("server.listenAddr"))
	assert.Equal(t, 60, viper.GetInt("sampling.intervalSeconds"))
	assert.Equal(t, "admin", viper.GetString("auth.adminRole"))
	assert.Equal(t, "creative", viper.GetString("auth.creativeMode"))
	assert.Equal(t, "jsonfile", viper.GetString("storage.type"))
	assert.Equal(t, "playerpositions", viper.GetString("storage.jsonfile.filePrefix"))
	assert.Equal(t, "", viper.GetString("discord.botToken"))
	assert.Equal(t, "", viper.GetString("discord.channelId"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "pptracker", viper.GetString("otel.serviceName"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetSamplingConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{ "sampling": { "intervalSeconds": 30, "autosaveInterval": "5m" } }`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pptracker.cfg.json"), []byte(cfg), 0644))
	require.NoError(t, Load(dir))

	sc := GetSamplingConfig()
	assert.Equal(t, 30*time.Second, sc.Interval)
	assert.Equal(t, 5*time.Minute, sc.AutosaveInterval)
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pptracker.cfg.json"), []byte(`{}`), 0644))
	require.NoError(t, Load(dir))

	cfg := GetStorageConfig()
	assert.Equal(t, "jsonfile", cfg.Type)
	assert.Equal(t, "./pptdata", cfg.JSONFile.Dir)
	assert.Equal(t, "playerpositions", cfg.JSONFile.FilePrefix)
	assert.Equal(t, "./pptdata/positions.db", cfg.SQLite.Path)
	assert.Equal(t, "pptracker", cfg.Postgres.Database)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"storage": {
			"type": "postgres",
			"jsonfile": { "dir": "/tmp/out", "filePrefix": "pos" },
			"postgres": { "host": "10.0.0.1", "database": "history" }
		}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pptracker.cfg.json"), []byte(cfg), 0644))
	require.NoError(t, Load(dir))

	sc := GetStorageConfig()
	assert.Equal(t, "postgres", sc.Type)
	assert.Equal(t, "/tmp/out", sc.JSONFile.Dir)
	assert.Equal(t, "pos", sc.JSONFile.FilePrefix)
	assert.Equal(t, "10.0.0.1", sc.Postgres.Host)
	assert.Equal(t, "history", sc.Postgres.Database)
}

func TestGetAuthConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("auth.adminRole", "owner")
	viper.Set("auth.creativeMode", "spectator")

	ac := GetAuthConfig()
	assert.Equal(t, "owner", ac.AdminRole)
	assert.Equal(t, "spectator", ac.CreativeMode)
}

func TestGetDiscordConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("discord.botToken", "tok")
	viper.Set("discord.channelId", "123")

	dc := GetDiscordConfig()
	assert.Equal(t, "tok", dc.BotToken)
	assert.Equal(t, "123", dc.ChannelID)
}
