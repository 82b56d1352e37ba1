package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories.
const DefaultAppName = "taskflow"

// Paths locates the config file, the session database and report exports.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
	ExportDir  string
}

// Options defines optional settings for configuration.
type Options struct {
	AppName string
	DevMode bool
}

// DefaultPaths returns default paths.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: DefaultAppName})
}

// DefaultPathsWithOptions returns default paths with options.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = DefaultAppName
	}
	if opts.DevMode {
		appName += "-dev"
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir := configDir
	if runtime.GOOS == "linux" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, fmt.Errorf("user home dir: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}

	env := map[string]string{}
	for _, keys := range baseOverrides {
		for _, key := range keys {
			env[key] = strings.TrimSpace(os.Getenv(key))
		}
	}
	return PathsFor(runtime.GOOS, env, configDir, dataDir, appName)
}

// baseOverrides lists, per GOOS, the env vars that replace the config and data bases.
var baseOverrides = map[string][2]string{
	"linux":   {"XDG_CONFIG_HOME", "XDG_DATA_HOME"},
	"windows": {"APPDATA", "LOCALAPPDATA"},
}

// PathsFor derives every path from explicit inputs so it can be tested for any platform.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, fmt.Errorf("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, fmt.Errorf("empty app name")
	}

	configBase, dataBase := userConfigDir, userDataDir
	if keys, ok := baseOverrides[goos]; ok {
		if v := env[keys[0]]; v != "" {
			configBase = v
		}
		if v := env[keys[1]]; v != "" {
			dataBase = v
		}
	}

	dataDir := filepath.Join(dataBase, appName)
	return Paths{
		ConfigPath: filepath.Join(configBase, appName, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+".db"),
		ExportDir:  filepath.Join(dataDir, "exports"),
	}, nil
}

// EnsureExportDir creates the export directory and returns it.
func (p Paths) EnsureExportDir() (string, error) {
	if strings.TrimSpace(p.ExportDir) == "" {
		return "", fmt.Errorf("empty export dir")
	}
	if err := os.MkdirAll(p.ExportDir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	return p.ExportDir, nil
}
