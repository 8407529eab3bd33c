package utils

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiniteOr(t *testing.T) {
	nan := math.NaN()
	inf := math.Inf(1)

	assert.Equal(t, 3.0, FiniteOr(9, nil, &nan, Float64Ptr(3)))
	assert.Equal(t, 9.0, FiniteOr(9, &inf, nil))
	assert.Equal(t, 0.0, FiniteOr(9, Float64Ptr(0)))
}

func TestParseTimestamp(t *testing.T) {
	ms, err := ParseTimestamp("1700000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ms)

	ms, err = ParseTimestamp("1700000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ms)

	ms, err = ParseTimestamp("2023-11-14T22:13:20Z")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ms)

	_, err = ParseTimestamp("ontem")
	assert.Error(t, err)
}

func TestMillisRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 123000000, time.UTC)
	assert.True(t, FromUnixMillis(UnixMillis(now)).Equal(now))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", FormatDuration(42*time.Second))
	assert.Equal(t, "3m 5s", FormatDuration(185*time.Second))
	assert.Equal(t, "1h 0m 1s", FormatDuration(time.Hour+time.Second))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "12.5", FormatFloat(12.5000, 3))
	assert.Equal(t, "3", FormatFloat(3.0, 2))
}
