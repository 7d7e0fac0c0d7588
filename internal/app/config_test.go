package app

import (
	"mime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigRequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("MUTATION_LATENCY", "250ms")
	t.Setenv("S3_BUCKET", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 250*time.Millisecond, cfg.MutationLatency)
	require.Equal(t, 720*time.Hour, cfg.SessionTTL)
	require.False(t, cfg.IsProduction())
	require.False(t, cfg.BlobEnabled())
}

func TestLoadConfigRejectsNegativeLatency(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("MUTATION_LATENCY", "-1s")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestTestModeRefresh(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())
	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	require.False(t, InTestMode())
}

func TestAttachmentTypesRegistered(t *testing.T) {
	for ext := range attachmentTypes {
		require.NotEmpty(t, mime.TypeByExtension(ext), ext)
	}
}
