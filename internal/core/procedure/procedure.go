package procedure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Step is a single named side effect.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Procedure is a straight-line sequence of steps bracketed by banners.
type Procedure struct {
	Name        string
	StartBanner string
	DoneBanner  string
	Steps       []Step
}

// Result records how far a run got.
type Result struct {
	Completed []string
	Duration  time.Duration
}

// Banner formats a console banner line.
func Banner(text string) string {
	return "=== " + text + " ==="
}

// StepNames returns the step names in execution order.
func (p Procedure) StepNames() []string {
	names := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		names = append(names, s.Name)
	}
	return names
}

// Validate checks that the procedure is runnable.
func (p Procedure) Validate() error {
	if len(p.Steps) == 0 {
		return ErrNoSteps
	}
	for i, s := range p.Steps {
		if s.Name == "" {
			return NewStepError(p.Name, "", i, ErrUnnamedStep)
		}
		if s.Run == nil {
			return NewStepError(p.Name, s.Name, i, ErrNilStep)
		}
	}
	return nil
}

// Run executes the steps in order and stops at the first failure.
//
// The start banner is printed before the first step and the done banner only
// after the last step succeeds, so a truncated console is the visible sign
// of a failed hook. A cancelled context stops the run before the next step.
func Run(ctx context.Context, p Procedure, console io.Writer, logger *slog.Logger) (res Result, err error) {
	if err := p.Validate(); err != nil {
		return res, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	started := time.Now()
	defer func() { res.Duration = time.Since(started) }()

	if p.StartBanner != "" {
		fmt.Fprintln(console, Banner(p.StartBanner))
	}

	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return res, NewStepError(p.Name, step.Name, i, err)
		}

		logger.Debug("step starting", "step", step.Name, "index", i+1, "total", len(p.Steps))
		stepStart := time.Now()

		if err := step.Run(ctx); err != nil {
			logger.Error("step failed",
				"step", step.Name,
				"index", i+1,
				"error", err,
			)
			return res, NewStepError(p.Name, step.Name, i, err)
		}

		logger.Info("step completed", "step", step.Name, "duration", time.Since(stepStart))
		res.Completed = append(res.Completed, step.Name)
	}

	if p.DoneBanner != "" {
		fmt.Fprintln(console, Banner(p.DoneBanner))
	}
	return res, nil
}
