package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database      DatabaseConfig      `toml:"database"`
	Logging       LoggingConfig       `toml:"logging"`
	Board         BoardConfig         `toml:"board"`
	Server        ServerConfig        `toml:"server"`
	Notifications NotificationsConfig `toml:"notifications"`
	Privacy       PrivacyConfig       `toml:"privacy"`
	Preferences   PreferencesConfig   `toml:"preferences"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type BoardConfig struct {
	// DragActivationDistance is measured in terminal cells.
	DragActivationDistance int  `toml:"drag_activation_distance"`
	ShowProgress           bool `toml:"show_progress"`
	ShowAssignee           bool `toml:"show_assignee"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type NotificationsConfig struct {
	Email        bool `toml:"email"`
	Push         bool `toml:"push"`
	Desktop      bool `toml:"desktop"`
	TaskUpdates  bool `toml:"task_updates"`
	WeeklyDigest bool `toml:"weekly_digest"`
}

type PrivacyConfig struct {
	ProfileVisibility string `toml:"profile_visibility"` // public | team | private
	ActivityStatus    bool   `toml:"activity_status"`
	DataCollection    bool   `toml:"data_collection"`
}

type PreferencesConfig struct {
	Theme      string `toml:"theme"` // light | dark | system
	Language   string `toml:"language"`
	Timezone   string `toml:"timezone"`
	DateFormat string `toml:"date_format"`
}

// Option is one selectable settings value with its display label.
type Option struct {
	Value string
	Label string
}

var (
	VisibilityOptions = []Option{{"public", "Public"}, {"team", "Team Only"}, {"private", "Private"}}
	ThemeOptions      = []Option{{"light", "Light"}, {"dark", "Dark"}, {"system", "System"}}
	LanguageOptions   = []Option{{"en", "English"}, {"es", "Spanish"}, {"fr", "French"}, {"de", "German"}}
	TimezoneOptions   = []Option{
		{"America/New_York", "Eastern Time"},
		{"America/Chicago", "Central Time"},
		{"America/Denver", "Mountain Time"},
		{"America/Los_Angeles", "Pacific Time"},
	}
	DateFormatOptions = []Option{{"MM/DD/YYYY", "MM/DD/YYYY"}, {"DD/MM/YYYY", "DD/MM/YYYY"}, {"YYYY-MM-DD", "YYYY-MM-DD"}}
)

// OptionValues returns the raw values of opts.
func OptionValues(opts []Option) []string {
	out := make([]string, 0, len(opts))
	for _, opt := range opts {
		out = append(out, opt.Value)
	}
	return out
}

// NextOption returns the value after current, wrapping around. Unknown values restart at the first.
func NextOption(opts []Option, current string) string {
	if len(opts) == 0 {
		return current
	}
	idx := slices.Index(OptionValues(opts), current)
	return opts[(idx+1)%len(opts)].Value
}

// OptionLabel returns the display label for value, or value itself.
func OptionLabel(opts []Option, value string) string {
	for _, opt := range opts {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".taskflow/log",
			},
		},
		Board: BoardConfig{
			DragActivationDistance: 3,
			ShowProgress:           true,
			ShowAssignee:           true,
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Notifications: NotificationsConfig{
			Email:        true,
			Push:         true,
			Desktop:      false,
			TaskUpdates:  true,
			WeeklyDigest: true,
		},
		Privacy: PrivacyConfig{
			ProfileVisibility: "team",
			ActivityStatus:    true,
			DataCollection:    false,
		},
		Preferences: PreferencesConfig{
			Theme:      "system",
			Language:   "en",
			Timezone:   "America/New_York",
			DateFormat: "MM/DD/YYYY",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Board.DragActivationDistance < 0 {
		return errors.New("board.drag_activation_distance must be >= 0")
	}
	if strings.TrimSpace(c.Server.HTTPBind) == "" {
		return errors.New("server.http_bind is required")
	}
	for name, endpoint := range map[string]string{"server.api_endpoint": c.Server.APIEndpoint, "server.mcp_endpoint": c.Server.MCPEndpoint} {
		if !strings.HasPrefix(strings.TrimSpace(endpoint), "/") {
			return fmt.Errorf("%s must start with /: %q", name, endpoint)
		}
	}
	if err := oneOf("privacy.profile_visibility", c.Privacy.ProfileVisibility, VisibilityOptions); err != nil {
		return err
	}
	if err := oneOf("preferences.theme", c.Preferences.Theme, ThemeOptions); err != nil {
		return err
	}
	if err := oneOf("preferences.language", c.Preferences.Language, LanguageOptions); err != nil {
		return err
	}
	if err := oneOf("preferences.date_format", c.Preferences.DateFormat, DateFormatOptions); err != nil {
		return err
	}
	if strings.TrimSpace(c.Preferences.Timezone) == "" {
		return errors.New("preferences.timezone is required")
	}
	return nil
}

func oneOf(field, value string, opts []Option) error {
	if !slices.Contains(OptionValues(opts), value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Save writes the full config to path.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// UpsertSettings rewrites the settings sections of the file at path, keeping every other key.
func UpsertSettings(path string, cfg Config) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	doc := map[string]any{}
	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read config: %w", err)
	case len(content) > 0:
		if err := toml.Unmarshal(content, &doc); err != nil {
			return fmt.Errorf("decode toml: %w", err)
		}
	}
	doc["notifications"] = cfg.Notifications
	doc["privacy"] = cfg.Privacy
	doc["preferences"] = cfg.Preferences
	doc["board"] = cfg.Board

	encoded, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
