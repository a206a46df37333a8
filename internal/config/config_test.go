package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/votebot")

	path := writeConfig(t, `
bot_username: votebot
channel_id: -100123
storage_driver: postgres
kafka_brokers: ["localhost:9092"]
flood_limit: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "votebot", cfg.BotUsername)
	assert.Equal(t, int64(-100123), cfg.ChannelID)
	assert.Equal(t, "token", cfg.BotToken)
	assert.Equal(t, "postgres://localhost/votebot", cfg.DatabaseDSN)
	assert.Equal(t, 5, cfg.FloodLimit)
	// Defaults survive partial files.
	assert.Equal(t, 30*time.Second, cfg.FloodWindow())
	assert.Equal(t, 15*time.Minute, cfg.DialogTTL())
	assert.Equal(t, "votebot.votes", cfg.KafkaTopic)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg := Defaults()
		cfg.BotToken = "token"
		cfg.BotUsername = "votebot"
		return cfg
	}

	t.Run("valid sqlite defaults", func(t *testing.T) {
		cfg := base()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing token", func(t *testing.T) {
		cfg := base()
		cfg.BotToken = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing username", func(t *testing.T) {
		cfg := base()
		cfg.BotUsername = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		cfg := base()
		cfg.StorageDriver = DriverPostgres
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := base()
		cfg.StorageDriver = "mysql"
		assert.Error(t, cfg.Validate())
	})

	t.Run("brokers without topic", func(t *testing.T) {
		cfg := base()
		cfg.KafkaBrokers = []string{"localhost:9092"}
		cfg.KafkaTopic = ""
		assert.Error(t, cfg.Validate())
	})
}
