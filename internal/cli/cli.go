// Package cli builds the cobra command shared by the hook binaries.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/stackhooks/internal/config"
	"github.com/artpar/stackhooks/internal/core/procedure"
	"github.com/artpar/stackhooks/internal/engine"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Override is a flag that replaces one config value when set.
type Override struct {
	Name  string
	Usage string
	Apply func(cfg *config.Config, value string)
}

// Hook describes one hook binary.
type Hook struct {
	Name      string
	Short     string
	Long      string
	Version   string
	BuildTime string
	Overrides []Override
	Build     func(cfg *config.Config, d engine.Deps) (procedure.Procedure, error)

	// Validate checks the config keys the hook reads, after overrides.
	Validate func(cfg *config.Config) error

	// Deps replaces engine.DefaultDeps; used by tests.
	Deps func(stdout, stderr io.Writer, logger *slog.Logger) engine.Deps
}

// errUsage marks failures before any step ran.
var errUsage = errors.New("usage error")

// NewCommand builds the cobra root command for hook. The exit code of the
// last run is stored in *exitCode.
func NewCommand(hook Hook, stdout, stderr io.Writer, exitCode *int) *cobra.Command {
	var configPath string
	values := make([]string, len(hook.Overrides))

	cmd := &cobra.Command{
		Use:           hook.Name,
		Short:         hook.Short,
		Long:          hook.Long,
		Args:          cobra.NoArgs,
		Version:       hook.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				*exitCode = procedure.ExitUsage
				return fmt.Errorf("%w: configuration error: %v", errUsage, err)
			}
			for i, o := range hook.Overrides {
				if cmd.Flags().Changed(o.Name) {
					o.Apply(cfg, values[i])
				}
			}
			validate := hook.Validate
			if validate == nil {
				validate = (*config.Config).Validate
			}
			if err := validate(cfg); err != nil {
				*exitCode = procedure.ExitUsage
				return fmt.Errorf("%w: configuration error: %v", errUsage, err)
			}

			logger := config.SetupLogger(cfg, stderr).With(
				"hook", hook.Name,
				"run_id", uuid.NewString(),
			)

			depsFn := hook.Deps
			if depsFn == nil {
				depsFn = engine.DefaultDeps
			}

			p, err := hook.Build(cfg, depsFn(stdout, stderr, logger))
			if err != nil {
				*exitCode = procedure.ExitUsage
				return fmt.Errorf("%w: %v", errUsage, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("hook starting", "version", hook.Version, "steps", p.StepNames())
			res, err := procedure.Run(ctx, p, stdout, logger)
			if err != nil {
				*exitCode = procedure.ExitCode(err)
				logger.Error("hook failed",
					"error", err,
					"completed", res.Completed,
					"exit_code", *exitCode,
				)
				return err
			}

			*exitCode = procedure.ExitSuccess
			logger.Info("hook completed", "duration", res.Duration)
			return nil
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate(fmt.Sprintf("%s {{.Version}} (built %s)\n", hook.Name, hook.BuildTime))

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	for i, o := range hook.Overrides {
		cmd.Flags().StringVar(&values[i], o.Name, "", o.Usage)
	}

	return cmd
}

// Execute runs hook with args and returns the process exit code.
func Execute(hook Hook, args []string, stdout, stderr io.Writer) int {
	exitCode := procedure.ExitSuccess
	cmd := NewCommand(hook, stdout, stderr, &exitCode)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		if exitCode == procedure.ExitSuccess {
			// cobra rejected the flags or arguments before RunE
			exitCode = procedure.ExitUsage
		}
	}
	return exitCode
}

// =============================================================================
// Hooks
// =============================================================================

// AfterInstall is the post-install hook.
func AfterInstall(version, buildTime string) Hook {
	return Hook{
		Name:      engine.HookAfterInstall,
		Short:     "Prepare permissions and working directories after installation",
		Long:      "after-install marks the deployment scripts under the application root executable and creates the logs and temp directories.",
		Version:   version,
		BuildTime: buildTime,
		Overrides: []Override{
			{
				Name:  "root",
				Usage: "application root (overrides app.root)",
				Apply: func(cfg *config.Config, v string) { cfg.App.Root = v },
			},
		},
		Build:    engine.PostInstall,
		Validate: (*config.Config).ValidateApp,
	}
}

// ApplicationStart is the start hook.
func ApplicationStart(version, buildTime string) Hook {
	return Hook{
		Name:      engine.HookApplicationStart,
		Short:     "Restart the container stack",
		Long:      "application-start tears down the container stack in the deployment directory, starts it detached and lists the running containers.",
		Version:   version,
		BuildTime: buildTime,
		Overrides: []Override{
			{
				Name:  "dir",
				Usage: "deployment directory holding the descriptor (overrides stack.dir)",
				Apply: func(cfg *config.Config, v string) { cfg.Stack.Dir = v },
			},
			{
				Name:  "file",
				Usage: "descriptor file name (overrides stack.file)",
				Apply: func(cfg *config.Config, v string) { cfg.Stack.File = v },
			},
		},
		Build:    engine.Startup,
		Validate: (*config.Config).ValidateStack,
	}
}
