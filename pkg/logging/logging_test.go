package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"DEBUG":   LevelDebug,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"info":    LevelInfo,
		"":        LevelInfo,
		"bogus":   LevelInfo,
	}
	for input, want := range cases {
		assert.Equal(t, want, ParseLevel(input), "input %q", input)
	}
}

func TestInitAndWrite(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelDebug, &buf)
	defer Init(LevelInfo, nil)

	Info("TestSubsystem", "hello %s", "world")
	require.Contains(t, buf.String(), "hello world")
	require.Contains(t, buf.String(), "TestSubsystem")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelWarn, &buf)
	defer Init(LevelInfo, nil)

	Debug("TestSubsystem", "should not appear")
	Warn("TestSubsystem", "should appear")

	out := buf.String()
	assert.False(t, strings.Contains(out, "should not appear"))
	assert.True(t, strings.Contains(out, "should appear"))
}

func TestEnabled(t *testing.T) {
	Init(LevelWarn, nil)
	defer Init(LevelInfo, nil)

	assert.False(t, Enabled(LevelDebug))
	assert.True(t, Enabled(LevelError))
}
