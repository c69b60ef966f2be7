package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	var cfg struct {
		Interval Duration `json:"interval"`
		Timeout  Duration `json:"timeout"`
	}

	err := json.Unmarshal([]byte(`{"interval":"15m","timeout":2000000000}`), &cfg)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Interval.Duration)
	assert.Equal(t, 2*time.Second, cfg.Timeout.Duration)
}

func TestDuration_UnmarshalJSON_Invalid(t *testing.T) {
	var d Duration
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration{Duration: 6 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, `"6h0m0s"`, string(b))
}

func TestEndOfDay_UTC(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)

	got := EndOfDay(now, nil)

	assert.Equal(t, time.Date(2025, 3, 10, 23, 59, 59, 999999999, time.UTC), got)
}

func TestEndOfDay_Location(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// 22:30 UTC on the 10th is already the 11th in UTC+3.
	now := time.Date(2025, 3, 10, 22, 30, 0, 0, time.UTC)

	got := EndOfDay(now, loc)

	assert.Equal(t, time.Date(2025, 3, 11, 23, 59, 59, 999999999, loc), got)
}

func TestFixed(t *testing.T) {
	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, at, Fixed(at)())
}
