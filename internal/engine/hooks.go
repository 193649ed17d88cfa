// Package engine assembles the deployment hooks from configuration and the
// shell adapters. Each constructor returns a procedure.Procedure ready for
// procedure.Run; nothing touches the host until the steps execute.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/artpar/stackhooks/internal/config"
	"github.com/artpar/stackhooks/internal/core/compose"
	"github.com/artpar/stackhooks/internal/core/procedure"
	"github.com/artpar/stackhooks/internal/shell/docker"
	"github.com/artpar/stackhooks/internal/shell/fsops"
)

// Hook names, also used as binary names.
const (
	HookAfterInstall     = "after-install"
	HookApplicationStart = "application-start"
)

// Step names.
const (
	StepChdir              = "chdir"
	StepChmodScripts       = "chmod-scripts"
	StepMkdirWorkDirs      = "mkdir-workdirs"
	StepValidateDescriptor = "validate-descriptor"
	StepComposeDown        = "compose-down"
	StepComposeUp          = "compose-up"
	StepListContainers     = "list-containers"
)

// ClientFactory opens a Docker Engine API client.
type ClientFactory func(ctx context.Context, host string) (docker.Client, error)

// Deps are the side-effecting collaborators a hook needs.
type Deps struct {
	FS        *fsops.FS
	Runner    docker.CommandRunner
	NewClient ClientFactory
	Env       map[string]string
	Stdout    io.Writer
	Stderr    io.Writer
	Logger    *slog.Logger
}

// DefaultDeps wires the host filesystem, real processes and the Docker SDK.
func DefaultDeps(stdout, stderr io.Writer, logger *slog.Logger) Deps {
	return Deps{
		FS:     fsops.New(nil),
		Runner: docker.ExecRunner{},
		NewClient: func(ctx context.Context, host string) (docker.Client, error) {
			return docker.NewDockerClient(ctx, host)
		},
		Env:    fsops.Environ(),
		Stdout: stdout,
		Stderr: stderr,
		Logger: logger,
	}
}

func (d *Deps) fill() {
	if d.FS == nil {
		d.FS = fsops.New(nil)
	}
	if d.Runner == nil {
		d.Runner = docker.ExecRunner{}
	}
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// =============================================================================
// After Install
// =============================================================================

// PostInstall builds the after-install procedure: verify the application
// root, make the deployment scripts executable, create the work dirs.
func PostInstall(cfg *config.Config, d Deps) (procedure.Procedure, error) {
	d.fill()
	app := cfg.App.Layout()
	if err := app.Validate(); err != nil {
		return procedure.Procedure{}, err
	}
	logger := d.Logger

	return procedure.Procedure{
		Name:        HookAfterInstall,
		StartBanner: "Post Install: " + app.Root,
		DoneBanner:  "Post Install Completed",
		Steps: []procedure.Step{
			{
				Name: StepChdir,
				Run: func(ctx context.Context) error {
					return d.FS.RequireDir(app.Root)
				},
			},
			{
				Name: StepChmodScripts,
				Run: func(ctx context.Context) error {
					changed, err := d.FS.MakeScriptsExecutable(app)
					if err != nil {
						return err
					}
					logger.Info("scripts marked executable",
						"pattern", app.ScriptsPattern(),
						"changed", len(changed),
					)
					return nil
				},
			},
			{
				Name: StepMkdirWorkDirs,
				Run: func(ctx context.Context) error {
					created, err := d.FS.EnsureWorkDirs(app)
					if err != nil {
						return err
					}
					logger.Info("work directories ready",
						"dirs", app.WorkDirPaths(),
						"created", created,
					)
					return nil
				},
			},
		},
	}, nil
}

// =============================================================================
// Application Start
// =============================================================================

// Startup builds the application-start procedure: verify the deployment
// directory, validate the descriptor, compose down, compose up -d, list
// the running containers.
func Startup(cfg *config.Config, d Deps) (procedure.Procedure, error) {
	d.fill()
	sc := cfg.Stack
	logger := d.Logger

	composeCLI, err := docker.NewCompose(docker.ComposeConfig{
		Command:     sc.ComposeCommand,
		Dir:         sc.Dir,
		File:        sc.File,
		ProjectName: sc.ProjectName,
		Timeout:     sc.CommandTimeout,
		Stdout:      d.Stdout,
		Stderr:      d.Stderr,
	}, d.Runner)
	if err != nil {
		return procedure.Procedure{}, err
	}

	// Filled in by validate-descriptor, read by list-containers.
	var descriptor *compose.Stack

	// The descriptor's own name counts only once it has been read.
	project := func() string {
		if descriptor != nil {
			return descriptor.ProjectName
		}
		return compose.ResolveProjectName(sc.ProjectName, d.Env, sc.Dir)
	}

	lister, err := newLister(cfg, d, project)
	if err != nil {
		return procedure.Procedure{}, err
	}

	steps := []procedure.Step{
		{
			Name: StepChdir,
			Run: func(ctx context.Context) error {
				return d.FS.RequireDir(sc.Dir)
			},
		},
	}

	if sc.Validate {
		steps = append(steps, procedure.Step{
			Name: StepValidateDescriptor,
			Run: func(ctx context.Context) error {
				data, err := d.FS.ReadFile(sc.Dir, sc.File)
				if err != nil {
					return err
				}
				parsed, err := compose.ParseDescriptor(string(data), compose.LoadOptions{
					ProjectName: sc.ProjectName,
					WorkingDir:  sc.Dir,
					Filename:    sc.File,
					Environment: d.Env,
				})
				if err != nil {
					return err
				}
				descriptor = parsed
				logger.Info("descriptor valid",
					"file", sc.File,
					"project", parsed.ProjectName,
					"services", parsed.ServiceNames(),
				)
				return nil
			},
		})
	}

	steps = append(steps,
		procedure.Step{Name: StepComposeDown, Run: composeCLI.Down},
		procedure.Step{Name: StepComposeUp, Run: composeCLI.Up},
		procedure.Step{
			Name: StepListContainers,
			Run: func(ctx context.Context) error {
				containers, err := lister.List(ctx, d.Stdout)
				if err != nil {
					return err
				}
				if descriptor != nil && containers != nil {
					if missing := descriptor.MissingContainers(containerNames(containers)); len(missing) > 0 {
						logger.Warn("expected containers not running",
							"project", descriptor.ProjectName,
							"containers", missing,
						)
					}
				}
				return nil
			},
		},
	)

	return procedure.Procedure{
		Name:        HookApplicationStart,
		StartBanner: "Starting Application: " + sc.Dir,
		DoneBanner:  "Application Started Successfully",
		Steps:       steps,
	}, nil
}

func newLister(cfg *config.Config, d Deps, project func() string) (docker.Lister, error) {
	sc := cfg.Stack
	switch sc.ListMode {
	case docker.ListModeCLI:
		return docker.NewCLILister(sc.ListCommand, sc.Dir, sc.CommandTimeout, d.Stderr, d.Runner)
	case docker.ListModeAPI:
		if d.NewClient == nil {
			return nil, fmt.Errorf("%w: api list mode needs a docker client", docker.ErrInvalidListMode)
		}
		return &apiLister{
			newClient:   d.NewClient,
			host:        cfg.Docker.Host,
			project:     project,
			projectOnly: sc.ListProjectOnly,
			logger:      d.Logger,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", docker.ErrInvalidListMode, sc.ListMode)
	}
}

// apiLister opens the Engine API connection only when listing runs, so a
// daemon outage surfaces as a list-containers failure rather than before
// compose-down.
type apiLister struct {
	newClient   ClientFactory
	host        string
	project     func() string
	projectOnly bool
	logger      *slog.Logger
}

func (l *apiLister) List(ctx context.Context, w io.Writer) ([]docker.ContainerInfo, error) {
	client, err := l.newClient(ctx, l.host)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		return nil, err
	}
	filter := ""
	if l.projectOnly {
		filter = l.project()
		l.logger.Debug("listing project containers", "project", filter)
	}
	return docker.NewAPILister(client, filter).List(ctx, w)
}

// containerNames returns the names of the listed containers.
func containerNames(containers []docker.ContainerInfo) []string {
	names := make([]string, 0, len(containers))
	for _, c := range containers {
		names = append(names, c.Name)
	}
	return names
}
