package discovery

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/mcpportal/gateway/internal/api"
)

// location is one known config file and the source it belongs to.
type location struct {
	source api.Source
	path   string
}

// knownLocations returns the fixed, ordered list of config locations for
// the current OS, per SPEC_FULL.md §4.1. manualPath is the gateway's own
// config directory (MCP_PORTAL_CONFIG_DIR override, or the default).
func knownLocations(homeDir, manualPath string) []location {
	locs := []location{
		{api.SourceManual, filepath.Join(manualPath, "manual.json")},
		{api.SourceCursor, filepath.Join(homeDir, ".cursor", "mcp.json")},
		{api.SourceVSCode, vscodeSettingsPath(homeDir)},
		{api.SourceClaude, claudeConfigPath(homeDir)},
		{api.SourceWindsurf, filepath.Join(homeDir, ".windsurf", "mcp_servers.json")},
		{api.SourceContinue, filepath.Join(homeDir, ".continue", "config.json")},
	}
	return locs
}

// vscodeSettingsPath returns the OS-specific VSCode User settings.json.
// $HOME/.vscode/settings.json is not scanned.
func vscodeSettingsPath(homeDir string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "Code", "User", "settings.json")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Code", "User", "settings.json")
		}
		return filepath.Join(homeDir, "AppData", "Roaming", "Code", "User", "settings.json")
	default:
		return filepath.Join(homeDir, ".config", "Code", "User", "settings.json")
	}
}

// claudeConfigPath returns the OS-specific Claude Desktop support
// directory's claude_desktop_config.json.
func claudeConfigPath(homeDir string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "Claude", "claude_desktop_config.json")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Claude", "claude_desktop_config.json")
		}
		return filepath.Join(homeDir, "AppData", "Roaming", "Claude", "claude_desktop_config.json")
	default:
		return filepath.Join(homeDir, ".config", "Claude", "claude_desktop_config.json")
	}
}

// DefaultManualDir returns $MCP_PORTAL_CONFIG_DIR, or the gateway's own
// user config directory when unset.
func DefaultManualDir() (string, error) {
	if dir := os.Getenv("MCP_PORTAL_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "mcpportal"), nil
}
