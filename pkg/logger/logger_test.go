package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(WARN)
	defer SetLevel(INFO)

	Info("não deve aparecer")
	Warnf("boia %s fora de posição", "buoy_1")

	out := buf.String()
	assert.NotContains(t, out, "não deve aparecer")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "boia buoy_1 fora de posição")
	assert.Contains(t, out, "logger_test.go")
}

func TestErrorIncludesCause(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(DEBUG)
	defer SetLevel(INFO)

	Error("falha no feed", assert.AnError)
	assert.True(t, strings.Contains(buf.String(), assert.AnError.Error()))
}

func TestFatalPanics(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	assert.Panics(t, func() { Fatalf("config inválida: %d", 1) })
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("Debug")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
