// Package paths resolves the default locations extman reads and writes.
// It follows the XDG Base Directory layout, with per-directory overrides
// through EXTMAN_* environment variables.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// Environment variable names
const (
	// EnvConfigDir overrides $XDG_CONFIG_HOME/extman
	EnvConfigDir = "EXTMAN_CONFIG_DIR"

	// EnvDataDir overrides $XDG_DATA_HOME/extman
	EnvDataDir = "EXTMAN_DATA_DIR"

	// EnvStateDir overrides $XDG_STATE_HOME/extman
	EnvStateDir = "EXTMAN_STATE_DIR"
)

// File and directory names under the XDG roots. These are not user
// configurable; configurable locations live in pkg/config.
const (
	AppDirName      = "extman"
	ConfigFileName  = "extman.toml"
	CatalogDirName  = "extensions"
	StateFileName   = "state.yml"
	HistoryFileName = "history.db"
	MetricsFileName = "extman.prom"
	LogFileName     = "extman.log"
)

// Paths holds the resolved application directories.
type Paths struct {
	configDir string
	dataDir   string
	stateDir  string
}

// New resolves the application directories from the environment.
func New() *Paths {
	return &Paths{
		configDir: dirFromEnv(EnvConfigDir, xdg.ConfigHome),
		dataDir:   dirFromEnv(EnvDataDir, xdg.DataHome),
		stateDir:  dirFromEnv(EnvStateDir, xdg.StateHome),
	}
}

func dirFromEnv(env, xdgRoot string) string {
	if dir := os.Getenv(env); dir != "" {
		return ExpandHome(dir)
	}
	return filepath.Join(xdgRoot, AppDirName)
}

// ConfigDir is where extman.toml lives.
func (p *Paths) ConfigDir() string { return p.configDir }

// DataDir holds the default extension catalog.
func (p *Paths) DataDir() string { return p.dataDir }

// StateDir holds the state file, history database and log.
func (p *Paths) StateDir() string { return p.stateDir }

// ConfigFile returns the default user configuration file.
func (p *Paths) ConfigFile() string { return filepath.Join(p.configDir, ConfigFileName) }

// CatalogDir returns the default extension catalog directory.
func (p *Paths) CatalogDir() string { return filepath.Join(p.dataDir, CatalogDirName) }

// StateFile returns the default persisted configuration file.
func (p *Paths) StateFile() string { return filepath.Join(p.stateDir, StateFileName) }

// HistoryDB returns the default snapshot database.
func (p *Paths) HistoryDB() string { return filepath.Join(p.stateDir, HistoryFileName) }

// MetricsFile returns the default prometheus textfile location.
func (p *Paths) MetricsFile() string { return filepath.Join(p.stateDir, MetricsFileName) }

// LogFile returns the log file location.
func (p *Paths) LogFile() string { return filepath.Join(p.stateDir, LogFileName) }

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
