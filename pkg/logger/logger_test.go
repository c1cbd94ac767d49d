package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger(t *testing.T, level LogLevel) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := New(Config{Level: level, Output: &buf})
	return l, &buf
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		" warn ":  WARN,
		"error":   WARN,
		"Fatal":   FATAL,
		"warning": WARN,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLevelFiltering(t *testing.T) {
	l, buf := setupTestLogger(t, WARN)

	l.Debugf("hidden %d", 1)
	l.Infof("hidden %d", 2)
	l.Warnf("shown %d", 3)
	l.Errorf("shown %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 3")
	assert.Contains(t, out, "[WARN] shown 4")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestNoColorWhenDisabled(t *testing.T) {
	l, buf := setupTestLogger(t, DEBUG)
	l.Infof("plain")
	assert.NotContains(t, buf.String(), "\x1b[")

	l.SetColorize(true)
	l.Infof("tinted")
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestPercentWithoutArgs(t *testing.T) {
	l, buf := setupTestLogger(t, DEBUG)
	// Called through a func value: a bare "%" format with no args must still print.
	infof := l.Infof
	infof("100% done")
	assert.Contains(t, buf.String(), "100% done")
}

func TestFatalExits(t *testing.T) {
	l, buf := setupTestLogger(t, DEBUG)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatalf("bye")
	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "[FATAL] bye")
}
