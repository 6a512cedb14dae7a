package app

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Environment variables that relocate apub's files.
const (
	EnvConfigPath = "APUB_CONFIG_PATH"
	EnvHome       = "APUB_HOME"
)

// Defaults are the application's default locations.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - APUB_CONFIG_PATH: config file location (default: $XDG_CONFIG_HOME/apub.toml)
//   - APUB_HOME: base directory for apub data (default: $XDG_DATA_HOME/apub)
func GetDefaults() Defaults {
	baseDir := getBaseDir()
	return Defaults{
		ConfigPath: getConfigPath(),
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}
}

func getConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	return filepath.Join(xdg.ConfigHome, "apub.toml")
}

func getBaseDir() string {
	if path := os.Getenv(EnvHome); path != "" {
		return path
	}
	return filepath.Join(xdg.DataHome, "apub")
}
