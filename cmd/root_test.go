package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandProperties(t *testing.T) {
	assert.Equal(t, "mcp-portal", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.True(t, rootCmd.SilenceUsage)
	assert.NotNil(t, rootCmd.RunE)
}

func TestSetVersion(t *testing.T) {
	SetVersion("9.9.9-test")
	assert.Equal(t, "9.9.9-test", rootCmd.Version)
}

func TestExitCodeForPlainError(t *testing.T) {
	assert.Equal(t, ExitCodeError, exitCodeFor(errors.New("boom")))
}

func TestExitCodeForExitError(t *testing.T) {
	err := newExitError(ExitCodeConfigInvalid, errors.New("bad config"))
	assert.Equal(t, ExitCodeConfigInvalid, exitCodeFor(err))
	assert.Equal(t, "bad config", err.Error())
}

func TestExitCodeForWrappedExitError(t *testing.T) {
	inner := newExitError(ExitCodePortInUse, errors.New("port busy"))
	wrapped := errors.Join(inner, errors.New("listen failed"))
	assert.Equal(t, ExitCodePortInUse, exitCodeFor(wrapped))
}
