package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CAPITALX_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadSizeBytes)
	assert.Equal(t, 10*time.Minute, cfg.SnapshotCacheTTL)
	assert.Equal(t, "0 0 3 * * *", cfg.MaintenanceSchedule)
	assert.False(t, cfg.Archive.Enabled())
	assert.Equal(t, filepath.Join(dir, "portfolio.db"), cfg.DatabasePath())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CAPITALX_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SNAPSHOT_CACHE_TTL", "30s")
	t.Setenv("UPLOAD_RATE_PER_SECOND", "0.5")
	t.Setenv("ARCHIVE_BUCKET", "capitalx-uploads")
	t.Setenv("ARCHIVE_ACCESS_KEY_ID", "key")
	t.Setenv("ARCHIVE_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.SnapshotCacheTTL)
	assert.Equal(t, 0.5, cfg.UploadRatePerSecond)
	assert.True(t, cfg.Archive.Enabled())
	assert.Equal(t, "uploads", cfg.Archive.Prefix)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("CAPITALX_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "not-a-number")
	t.Setenv("SNAPSHOT_CACHE_TTL", "forever")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10*time.Minute, cfg.SnapshotCacheTTL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Port: 8080, MaxUploadSizeBytes: 1024, UploadRatePerSecond: 1, UploadRateBurst: 1}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := valid()
		cfg.Port = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad upload size", func(t *testing.T) {
		cfg := valid()
		cfg.MaxUploadSizeBytes = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("half configured credentials", func(t *testing.T) {
		cfg := valid()
		cfg.Archive = ArchiveConfig{Bucket: "b", AccessKeyID: "key"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("credentials without bucket", func(t *testing.T) {
		cfg := valid()
		cfg.Archive = ArchiveConfig{AccessKeyID: "key", SecretAccessKey: "secret"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("bucket with default credential chain", func(t *testing.T) {
		cfg := valid()
		cfg.Archive = ArchiveConfig{Bucket: "b"}
		assert.NoError(t, cfg.Validate())
	})
}

func TestUseDataDir_CreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	cfg := &Config{}
	require.NoError(t, cfg.UseDataDir(dir))

	assert.Equal(t, dir, cfg.DataDir)
	assert.DirExists(t, dir)
}
