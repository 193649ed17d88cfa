package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

// =============================================================================
// Command Execution
// =============================================================================

// Command is one invocation of an external tool.
type Command struct {
	Dir    string
	Name   string
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// CommandRunner runs a command to completion.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as child processes.
type ExecRunner struct{}

// Run executes cmd and blocks until it exits. A non-zero exit surfaces as
// *exec.ExitError so the caller can propagate the status.
func (ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	return cmd.Run()
}

// ParseCommand splits a configured command line into argv.
func ParseCommand(line string) ([]string, error) {
	argv, err := shellwords.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", line, err)
	}
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	return argv, nil
}

// runWithTimeout runs c, bounding it by timeout when positive. Failures wrap
// ErrCommandFailed and keep the runner's error in the chain for its exit
// status.
func runWithTimeout(ctx context.Context, runner CommandRunner, timeout time.Duration, c Command) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := runner.Run(ctx, c)
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return fmt.Errorf("%w: %w", ErrCommandFailed, err)
}

// =============================================================================
// Compose Stack
// =============================================================================

// ComposeConfig configures the compose CLI wrapper.
type ComposeConfig struct {
	Command     string // e.g. "docker compose" or "docker-compose"
	Dir         string // deployment directory; commands run here
	File        string // descriptor file name, relative to Dir
	ProjectName string // optional -p value
	Timeout     time.Duration
	Stdout      io.Writer
	Stderr      io.Writer
}

// Compose drives a stack through the compose CLI.
type Compose struct {
	argv   []string
	cfg    ComposeConfig
	runner CommandRunner
}

// NewCompose creates a compose wrapper. A nil runner uses ExecRunner.
func NewCompose(cfg ComposeConfig, runner CommandRunner) (*Compose, error) {
	argv, err := ParseCommand(cfg.Command)
	if err != nil {
		return nil, NewDockerError("NewCompose", "stack", "", "invalid compose command", err)
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.Stdout == nil {
		cfg.Stdout = io.Discard
	}
	if cfg.Stderr == nil {
		cfg.Stderr = io.Discard
	}
	return &Compose{argv: argv, cfg: cfg, runner: runner}, nil
}

// command builds the full invocation for a compose subcommand.
func (c *Compose) command(sub ...string) Command {
	args := append([]string{}, c.argv[1:]...)
	if c.cfg.File != "" {
		args = append(args, "-f", c.cfg.File)
	}
	if c.cfg.ProjectName != "" {
		args = append(args, "-p", c.cfg.ProjectName)
	}
	args = append(args, sub...)
	return Command{
		Dir:    c.cfg.Dir,
		Name:   c.argv[0],
		Args:   args,
		Stdout: c.cfg.Stdout,
		Stderr: c.cfg.Stderr,
	}
}

// Down stops and removes the stack. Nothing running is not an error.
func (c *Compose) Down(ctx context.Context) error {
	return c.run(ctx, "Down", "down")
}

// Up starts the stack detached.
func (c *Compose) Up(ctx context.Context) error {
	return c.run(ctx, "Up", "up", "-d")
}

func (c *Compose) run(ctx context.Context, op string, sub ...string) error {
	cmd := c.command(sub...)
	if err := runWithTimeout(ctx, c.runner, c.cfg.Timeout, cmd); err != nil {
		return NewDockerError(op, "stack", c.cfg.ProjectName, fmt.Sprintf("%s: %v", cmd, err), err)
	}
	return nil
}

// =============================================================================
// Container Listing
// =============================================================================

// CLILister runs a listing command (e.g. "docker ps") and copies its raw
// output to the writer.
type CLILister struct {
	argv    []string
	dir     string
	timeout time.Duration
	stderr  io.Writer
	runner  CommandRunner
}

// NewCLILister creates a lister for the given command line.
func NewCLILister(line, dir string, timeout time.Duration, stderr io.Writer, runner CommandRunner) (*CLILister, error) {
	argv, err := ParseCommand(line)
	if err != nil {
		return nil, NewDockerError("NewCLILister", "container", "", "invalid list command", err)
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return &CLILister{argv: argv, dir: dir, timeout: timeout, stderr: stderr, runner: runner}, nil
}

// List implements Lister.
func (l *CLILister) List(ctx context.Context, w io.Writer) ([]ContainerInfo, error) {
	cmd := Command{
		Dir:    l.dir,
		Name:   l.argv[0],
		Args:   l.argv[1:],
		Stdout: w,
		Stderr: l.stderr,
	}
	if err := runWithTimeout(ctx, l.runner, l.timeout, cmd); err != nil {
		return nil, NewDockerError("List", "container", "", fmt.Sprintf("%s: %v", cmd, err), err)
	}
	return nil, nil
}

// APILister lists running containers through the Engine API and renders
// them as a table.
type APILister struct {
	client  Client
	project string // when set, only containers of this compose project
	now     func() time.Time
}

// NewAPILister creates a lister backed by client.
func NewAPILister(client Client, project string) *APILister {
	return &APILister{client: client, project: project, now: time.Now}
}

// List implements Lister.
func (l *APILister) List(ctx context.Context, w io.Writer) ([]ContainerInfo, error) {
	opts := ListOptions{}
	if l.project != "" {
		opts.Filters = map[string]string{"label": LabelComposeProject + "=" + l.project}
	}
	containers, err := l.client.ListContainers(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := RenderContainers(w, containers, l.now()); err != nil {
		return nil, NewDockerError("List", "container", "", "render table", err)
	}
	return containers, nil
}
