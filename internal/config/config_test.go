package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, StoragePostgres, cfg.StorageDriver)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "https://mainnet-api.algonode.cloud", cfg.AlgodURL)
	require.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	require.Len(t, cfg.ConsumerTopics, 4)
}

func TestLoadReadsEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", " a:9092 , ,b:9092")
	t.Setenv("TIP_CONFIRMATION_ROUNDS", "8")
	t.Setenv("BALANCE_CACHE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, StorageMemory, cfg.StorageDriver)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	require.Equal(t, uint64(8), cfg.TipConfirmationRounds)
	require.Equal(t, 30*time.Second, cfg.BalanceCacheTTL)
}

func TestLoadRejectsUnknownDriverAndShortSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("SUPABASE_JWT_SECRET", "short")
	_, err = Load()
	require.Error(t, err)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
