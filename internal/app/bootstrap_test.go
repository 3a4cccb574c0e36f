package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	home := t.TempDir()
	manual := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MCP_PORTAL_CONFIG_DIR", manual)
	return NewConfig()
}

func TestNewApplicationWiresWithoutStartingAnything(t *testing.T) {
	cfg := testConfig(t)
	application, err := NewApplication(cfg)
	require.NoError(t, err)
	require.NotNil(t, application)
	require.NotNil(t, application.server)
}

func TestDiscoverOnEmptyHomeReturnsNoDecls(t *testing.T) {
	cfg := testConfig(t)
	application, err := NewApplication(cfg)
	require.NoError(t, err)

	decls, dropped, err := application.Discover()
	require.NoError(t, err)
	require.Empty(t, dropped)
	require.Empty(t, decls)
}

func TestConfigGetSetRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	application, err := NewApplication(cfg)
	require.NoError(t, err)

	doc, err := application.ConfigGet()
	require.NoError(t, err)
	require.Contains(t, doc, "mcpServers")

	doc["mcpServers"] = map[string]any{
		"alpha": map[string]any{"command": "echo-tool"},
	}
	result, dropped, err := application.ConfigSet(doc)
	require.NoError(t, err)
	require.Empty(t, dropped)
	require.Len(t, result.Added, 1)

	second, dropped, err := application.ConfigSet(doc)
	require.NoError(t, err)
	require.Empty(t, dropped)
	require.True(t, second.IsNoop())
}
