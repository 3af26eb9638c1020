// Package status carries presentational progress and summary reporting. It is
// an observer only: nothing here may influence what gets extracted, diffed or
// written, and every implementation must be safe to replace with Noop.
package status

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

// Reporter receives progress callbacks and informational lines during a run.
type Reporter interface {
	// StartStage begins a named unit of work with a known number of steps.
	StartStage(name string, total int)
	// Advance moves the current stage forward by n steps.
	Advance(n int)
	// EndStage closes the current stage.
	EndStage()
	// Info reports an informational summary line.
	Info(msg string)
	// Warn reports a non-fatal warning line.
	Warn(msg string)
}

// Noop discards every event.
type Noop struct{}

func (Noop) StartStage(string, int) {}
func (Noop) Advance(int)            {}
func (Noop) EndStage()              {}
func (Noop) Info(string)            {}
func (Noop) Warn(string)            {}

// Console reports through a pterm progress bar with colored summary lines.
type Console struct {
	out    io.Writer
	logger zerolog.Logger
	bar    *pterm.ProgressbarPrinter
}

// NewConsole creates a console reporter writing to out.
func NewConsole(out io.Writer, logger zerolog.Logger) *Console {
	return &Console{out: out, logger: logger}
}

func (c *Console) StartStage(name string, total int) {
	c.EndStage()
	bar, err := pterm.DefaultProgressbar.WithTotal(total).WithTitle(name).WithWriter(c.out).Start()
	if err != nil {
		c.logger.Debug().Err(err).Str("stage", name).Msg("progress bar unavailable")
		return
	}
	c.bar = bar
}

func (c *Console) Advance(n int) {
	if c.bar != nil {
		c.bar.Add(n)
	}
}

func (c *Console) EndStage() {
	if c.bar == nil {
		return
	}
	if _, err := c.bar.Stop(); err != nil {
		c.logger.Debug().Err(err).Msg("stopping progress bar")
	}
	c.bar = nil
}

func (c *Console) Info(msg string) {
	fmt.Fprintf(c.out, "%s %s\n", color.New(color.FgCyan).Sprint("•"), msg)
	c.logger.Info().Msg(msg)
}

func (c *Console) Warn(msg string) {
	fmt.Fprintf(c.out, "%s %s\n", color.New(color.FgYellow).Sprint("!"), msg)
	c.logger.Warn().Msg(msg)
}
