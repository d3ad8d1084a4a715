package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.Payment.DefaultCurrency)
	assert.Equal(t, 3, cfg.Queue.Attempts)
	assert.Equal(t, time.Second, cfg.Queue.Backoff)
	assert.Equal(t, int64(100), cfg.Queue.RemoveOnComplete)
	assert.Equal(t, int64(50), cfg.Queue.RemoveOnFail)
	assert.Equal(t, 7*24*time.Hour, cfg.Payment.COD.CodeTTL)
	assert.Equal(t, "email", cfg.Queue.Name)
	assert.Equal(t, "localhost:6379", cfg.Queue.Addr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QUEUE_ATTEMPTS", "5")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("PAYMENT_DEFAULT_CURRENCY", "EUR")
	t.Setenv("ADMIN_EMAIL", "ops@example.com")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Queue.Attempts)
	assert.Equal(t, "redis.internal", cfg.Queue.Host)
	assert.Equal(t, "EUR", cfg.Payment.DefaultCurrency)
	assert.Equal(t, "ops@example.com", cfg.Notification.AdminEmail)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("queue:\n  concurrency: 8\n  backoff: 2s\nevents:\n  backend: kafka\n  kafka:\n    brokers: [\"k1:9092\", \"k2:9092\"]\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Queue.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.Queue.Backoff)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	bad := *cfg
	bad.Queue.Attempts = 0
	bad.Events.Backend = "sqs"
	bad.Notification.Mailer = "pigeon"

	err = bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue.attempts")
	assert.Contains(t, err.Error(), "events.backend")
	assert.Contains(t, err.Error(), "notification.mailer")

	kafka := *cfg
	kafka.Events.Backend = "kafka"
	kafka.Events.Kafka.Brokers = nil
	assert.ErrorContains(t, kafka.Validate(), "brokers")
}
