package platform

import (
	"os"
	"path/filepath"
	"testing"
)

// TestPathsForPlatforms covers each GOOS override rule.
func TestPathsForPlatforms(t *testing.T) {
	cases := []struct {
		name       string
		goos       string
		env        map[string]string
		configBase string
		dataBase   string
		wantConfig string
		wantData   string
	}{
		{
			name:       "linux xdg",
			goos:       "linux",
			env:        map[string]string{"XDG_CONFIG_HOME": "/xdg/config", "XDG_DATA_HOME": "/xdg/data"},
			configBase: "/fallback/config",
			dataBase:   "/fallback/data",
			wantConfig: "/xdg/config",
			wantData:   "/xdg/data",
		},
		{
			name:       "linux without xdg",
			goos:       "linux",
			env:        map[string]string{},
			configBase: "/home/me/.config",
			dataBase:   "/home/me/.local/share",
			wantConfig: "/home/me/.config",
			wantData:   "/home/me/.local/share",
		},
		{
			name:       "windows appdata",
			goos:       "windows",
			env:        map[string]string{"APPDATA": `C:\Roaming`, "LOCALAPPDATA": `C:\Local`},
			configBase: `C:\fallback\config`,
			dataBase:   `C:\fallback\data`,
			wantConfig: `C:\Roaming`,
			wantData:   `C:\Local`,
		},
		{
			name:       "darwin ignores xdg",
			goos:       "darwin",
			env:        map[string]string{"XDG_CONFIG_HOME": "/ignored", "XDG_DATA_HOME": "/ignored"},
			configBase: "/Users/me/Library/Application Support",
			dataBase:   "/Users/me/Library/Application Support",
			wantConfig: "/Users/me/Library/Application Support",
			wantData:   "/Users/me/Library/Application Support",
		},
		{
			name:       "unknown platform",
			goos:       "freebsd",
			configBase: "/cfg",
			dataBase:   "/data",
			wantConfig: "/cfg",
			wantData:   "/data",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := PathsFor(tc.goos, tc.env, tc.configBase, tc.dataBase, "taskflow")
			if err != nil {
				t.Fatalf("PathsFor() error = %v", err)
			}
			if want := filepath.Join(tc.wantConfig, "taskflow", "config.toml"); p.ConfigPath != want {
				t.Fatalf("ConfigPath = %q, want %q", p.ConfigPath, want)
			}
			if want := filepath.Join(tc.wantData, "taskflow"); p.DataDir != want {
				t.Fatalf("DataDir = %q, want %q", p.DataDir, want)
			}
			if want := filepath.Join(tc.wantData, "taskflow", "taskflow.db"); p.DBPath != want {
				t.Fatalf("DBPath = %q, want %q", p.DBPath, want)
			}
		})
	}
}

func TestPathsForRejectsEmptyInputs(t *testing.T) {
	if _, err := PathsFor("darwin", nil, "", "/tmp/data", "taskflow"); err == nil {
		t.Fatal("expected error for empty config base")
	}
	if _, err := PathsFor("linux", nil, "/cfg", "/data", "  "); err == nil {
		t.Fatal("expected error for blank app name")
	}
}

func TestDefaultPathsWithOptionsDevMode(t *testing.T) {
	if _, err := DefaultPaths(); err != nil {
		t.Fatalf("DefaultPaths() error = %v", err)
	}
	p, err := DefaultPathsWithOptions(Options{AppName: "taskflow", DevMode: true})
	if err != nil {
		t.Fatalf("DefaultPathsWithOptions() error = %v", err)
	}
	if filepath.Base(filepath.Dir(p.ConfigPath)) != "taskflow-dev" {
		t.Fatalf("expected dev config dir suffix, got %q", p.ConfigPath)
	}
	if filepath.Base(p.DBPath) != "taskflow-dev.db" {
		t.Fatalf("expected dev db name, got %q", p.DBPath)
	}
}

func TestEnsureExportDir(t *testing.T) {
	p, err := PathsFor("linux", map[string]string{"XDG_DATA_HOME": t.TempDir()}, "/cfg", "/data", "taskflow")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	if filepath.Dir(p.ExportDir) != p.DataDir {
		t.Fatalf("unexpected export dir %q", p.ExportDir)
	}
	dir, err := p.EnsureExportDir()
	if err != nil {
		t.Fatalf("EnsureExportDir() error = %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("export dir not created: %v", err)
	}
	if _, err := (Paths{}).EnsureExportDir(); err == nil {
		t.Fatal("expected error for empty export dir")
	}
}
