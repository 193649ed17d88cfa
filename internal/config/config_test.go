package config

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/opt/app", cfg.App.Root)
	assert.Equal(t, "scripts/*.sh", cfg.App.ScriptsGlob)
	assert.Equal(t, []string{"logs", "temp"}, cfg.App.WorkDirs)
	assert.Equal(t, uint32(0o755), cfg.App.DirMode)
	assert.Equal(t, "/opt/app/deploy", cfg.Stack.Dir)
	assert.Equal(t, "docker-compose.yml", cfg.Stack.File)
	assert.Equal(t, "", cfg.Stack.ProjectName)
	assert.Equal(t, "docker compose", cfg.Stack.ComposeCommand)
	assert.Equal(t, "docker ps", cfg.Stack.ListCommand)
	assert.Equal(t, "cli", cfg.Stack.ListMode)
	assert.False(t, cfg.Stack.ListProjectOnly)
	assert.True(t, cfg.Stack.Validate)
	assert.Equal(t, time.Duration(0), cfg.Stack.CommandTimeout)
	assert.Equal(t, "", cfg.Docker.Host)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
app:
  root: "/srv/shop"
  scripts_glob: "bin/*"
  work_dirs: ["logs", "temp", "cache"]
  dir_mode: 0o750

stack:
  dir: "/srv/shop/deploy"
  file: "compose.prod.yml"
  project_name: "shop"
  compose_command: "docker-compose"
  list_mode: "api"
  list_project_only: true
  validate: false
  command_timeout: 5m

log:
  level: "debug"
  format: "json"
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "/srv/shop", cfg.App.Root)
	assert.Equal(t, "bin/*", cfg.App.ScriptsGlob)
	assert.Equal(t, []string{"logs", "temp", "cache"}, cfg.App.WorkDirs)
	assert.Equal(t, uint32(0o750), cfg.App.DirMode)
	assert.Equal(t, "/srv/shop/deploy", cfg.Stack.Dir)
	assert.Equal(t, "compose.prod.yml", cfg.Stack.File)
	assert.Equal(t, "shop", cfg.Stack.ProjectName)
	assert.Equal(t, "docker-compose", cfg.Stack.ComposeCommand)
	assert.Equal(t, "api", cfg.Stack.ListMode)
	assert.True(t, cfg.Stack.ListProjectOnly)
	assert.False(t, cfg.Stack.Validate)
	assert.Equal(t, 5*time.Minute, cfg.Stack.CommandTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("STACKHOOKS_APP_ROOT", "/data/app")
	t.Setenv("STACKHOOKS_STACK_DIR", "/data/app/compose")
	t.Setenv("STACKHOOKS_STACK_PROJECT_NAME", "billing")
	t.Setenv("STACKHOOKS_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/data/app", cfg.App.Root)
	assert.Equal(t, "/data/app/compose", cfg.Stack.Dir)
	assert.Equal(t, "billing", cfg.Stack.ProjectName)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "/opt/app", cfg.App.Root)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

func TestConfig_ValidateSections(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		appErr   bool
		stackErr bool
	}{
		{"defaults", nil, false, false},
		{"bad list mode", map[string]string{"STACKHOOKS_STACK_LIST_MODE": "docker"}, false, true},
		{"empty compose command", map[string]string{"STACKHOOKS_STACK_COMPOSE_COMMAND": " "}, false, true},
		{"empty stack dir", map[string]string{"STACKHOOKS_STACK_DIR": " "}, false, true},
		{"negative timeout", map[string]string{"STACKHOOKS_STACK_COMMAND_TIMEOUT": "-1s"}, false, true},
		{"escaping work dir", map[string]string{"STACKHOOKS_APP_WORK_DIRS": "../logs"}, true, false},
		{"absolute scripts glob", map[string]string{"STACKHOOKS_APP_SCRIPTS_GLOB": "/usr/bin/*"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			// Loading never validates; the hooks do after flag overrides.
			cfg, err := LoadConfig("")
			require.NoError(t, err)

			assert.Equal(t, tt.appErr, cfg.ValidateApp() != nil, "ValidateApp")
			assert.Equal(t, tt.stackErr, cfg.ValidateStack() != nil, "ValidateStack")
			assert.Equal(t, tt.appErr || tt.stackErr, cfg.Validate() != nil, "Validate")
		})
	}
}

func TestAppConfig_Layout(t *testing.T) {
	app := AppConfig{Root: "/srv/shop", ScriptsGlob: "bin/*", WorkDirs: []string{"logs"}, DirMode: 0o750}

	l := app.Layout()
	assert.Equal(t, "/srv/shop", l.Root)
	assert.Equal(t, fs.FileMode(0o750), l.DirMode)
	assert.Equal(t, []string{"/srv/shop/logs"}, l.WorkDirPaths())
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&Config{Log: LogConfig{Level: "info", Format: "json"}}, &buf)

	logger.Info("hello", "hook", "after-install")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"hook":"after-install"`)
}

func TestSetupLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&Config{Log: LogConfig{Level: "info", Format: "text"}}, &buf)

	logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestSetupLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := SetupLogger(&Config{Log: LogConfig{Level: tt.level}}, &bytes.Buffer{})
			ctx := context.Background()
			assert.True(t, logger.Enabled(ctx, tt.want))
			assert.False(t, logger.Enabled(ctx, tt.want-1))
		})
	}
}

// =============================================================================
// Test Helpers
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"STACKHOOKS_APP_ROOT",
		"STACKHOOKS_APP_SCRIPTS_GLOB",
		"STACKHOOKS_APP_WORK_DIRS",
		"STACKHOOKS_STACK_DIR",
		"STACKHOOKS_STACK_PROJECT_NAME",
		"STACKHOOKS_STACK_LIST_MODE",
		"STACKHOOKS_STACK_COMPOSE_COMMAND",
		"STACKHOOKS_STACK_COMMAND_TIMEOUT",
		"STACKHOOKS_LOG_LEVEL",
		"STACKHOOKS_LOG_FORMAT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}
