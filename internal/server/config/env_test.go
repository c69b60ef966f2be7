package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_OverlaysVariables(t *testing.T) {
	t.Setenv("MEMORYLANE_ENV", "production")
	t.Setenv("MEMORYLANE_SMTP_PORT", "2525")
	t.Setenv("MEMORYLANE_MAIL_TIMEOUT", "3s")
	t.Setenv("MEMORYLANE_REDIS_URL", "redis://localhost:6379/0")

	c := &Config{}
	c.LoadDefaults()
	parseEnv(c, nil)

	assert.True(t, c.IsProduction())
	assert.Equal(t, 2525, c.SMTPPort)
	assert.Equal(t, 3*time.Second, c.MailTimeout)
	assert.Equal(t, "redis://localhost:6379/0", c.RedisURL)
}

func TestParseEnv_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("MEMORYLANE_SMTP_PORT", "twenty")
	t.Setenv("MEMORYLANE_UNLOCK_SWEEP_INTERVAL", "often")

	c := &Config{SMTPPort: 587, UnlockSweepInterval: time.Minute}
	parseEnv(c, nil)

	assert.Equal(t, 587, c.SMTPPort)
	assert.Equal(t, time.Minute, c.UnlockSweepInterval)
}

func TestParseEnv_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("MEMORYLANE_APP_BASE_URL=https://memorylane.example\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("MEMORYLANE_APP_BASE_URL") })

	c := &Config{}
	parseEnv(c, []string{"-env-file", path})

	assert.Equal(t, "https://memorylane.example", c.AppBaseURL)
}

func TestParseEnv_MissingDotenvFilePanics(t *testing.T) {
	c := &Config{}
	assert.Panics(t, func() { parseEnv(c, []string{"-env-file", "/does/not/exist.env"}) })
}
