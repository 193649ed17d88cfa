// Package config loads hook configuration from defaults, an optional file,
// and STACKHOOKS_* environment variables.
package config

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/artpar/stackhooks/internal/core/layout"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STACKHOOKS"

// =============================================================================
// Config Types
// =============================================================================

// Config holds all hook configuration.
type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Stack  StackConfig  `mapstructure:"stack"`
	Docker DockerConfig `mapstructure:"docker"`
	Log    LogConfig    `mapstructure:"log"`
}

// AppConfig describes the installed application tree.
type AppConfig struct {
	Root        string   `mapstructure:"root"`
	ScriptsGlob string   `mapstructure:"scripts_glob"`
	WorkDirs    []string `mapstructure:"work_dirs"`
	DirMode     uint32   `mapstructure:"dir_mode"`
}

// Layout converts the app section to a layout value.
func (c AppConfig) Layout() layout.App {
	return layout.App{
		Root:        c.Root,
		ScriptsGlob: c.ScriptsGlob,
		WorkDirs:    append([]string(nil), c.WorkDirs...),
		DirMode:     fs.FileMode(c.DirMode),
	}
}

// StackConfig describes the container stack and how to drive it.
type StackConfig struct {
	Dir             string        `mapstructure:"dir"`
	File            string        `mapstructure:"file"`
	ProjectName     string        `mapstructure:"project_name"`
	ComposeCommand  string        `mapstructure:"compose_command"`
	ListCommand     string        `mapstructure:"list_command"`
	ListMode        string        `mapstructure:"list_mode"`
	ListProjectOnly bool          `mapstructure:"list_project_only"`
	Validate        bool          `mapstructure:"validate"`
	CommandTimeout  time.Duration `mapstructure:"command_timeout"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("app.root", layout.DefaultRoot)
	v.SetDefault("app.scripts_glob", layout.DefaultScriptsGlob)
	v.SetDefault("app.work_dirs", layout.DefaultWorkDirs)
	v.SetDefault("app.dir_mode", uint32(layout.DefaultDirMode))
	v.SetDefault("stack.dir", "/opt/app/deploy")
	v.SetDefault("stack.file", "docker-compose.yml")
	v.SetDefault("stack.project_name", "")
	v.SetDefault("stack.compose_command", "docker compose")
	v.SetDefault("stack.list_command", "docker ps")
	v.SetDefault("stack.list_mode", "cli")
	v.SetDefault("stack.list_project_only", false)
	v.SetDefault("stack.validate", true)
	v.SetDefault("stack.command_timeout", "0s")
	v.SetDefault("docker.host", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only a malformed file is fatal; a missing one falls back to defaults
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks every section. Each hook only reads one of them, so the
// binaries call ValidateApp or ValidateStack after applying flag overrides.
func (c *Config) Validate() error {
	if err := c.ValidateApp(); err != nil {
		return err
	}
	return c.ValidateStack()
}

// ValidateApp checks the app.* keys read by after-install.
func (c *Config) ValidateApp() error {
	return c.App.Layout().Validate()
}

// ValidateStack checks the stack.* keys read by application-start.
func (c *Config) ValidateStack() error {
	if strings.TrimSpace(c.Stack.Dir) == "" {
		return fmt.Errorf("stack.dir must not be empty")
	}
	if strings.TrimSpace(c.Stack.File) == "" {
		return fmt.Errorf("stack.file must not be empty")
	}
	if strings.TrimSpace(c.Stack.ComposeCommand) == "" {
		return fmt.Errorf("stack.compose_command must not be empty")
	}
	switch c.Stack.ListMode {
	case "cli":
		if strings.TrimSpace(c.Stack.ListCommand) == "" {
			return fmt.Errorf("stack.list_command must not be empty in cli list mode")
		}
	case "api":
	default:
		return fmt.Errorf("stack.list_mode must be \"cli\" or \"api\", got %q", c.Stack.ListMode)
	}
	if c.Stack.CommandTimeout < 0 {
		return fmt.Errorf("stack.command_timeout must not be negative")
	}
	return nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
// Logs go to w (stderr in the binaries) so stdout stays the operator console.
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
