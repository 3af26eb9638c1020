// Package operation orchestrates one run end to end: fetch the catalog,
// extract the record sets, diff against the previous snapshot, append the
// history entry and, on a committed run, replace the persisted artifacts.
package operation

import (
	"context"

	"gitlab.com/tozd/go/errors"

	"github.com/cloudpeek/azactions/pkg/config"
	"github.com/cloudpeek/azactions/pkg/source"
	"github.com/cloudpeek/azactions/pkg/status"
)

// Options wires an Operator's collaborators.
type Options struct {
	Config   *config.Config
	Source   source.Source
	Reporter status.Reporter
}

// Operator runs the pull-diff-report pipeline.
type Operator struct {
	cfg      *config.Config
	src      source.Source
	reporter status.Reporter
}

// New validates the options and builds an Operator.
func New(opts Options) (*Operator, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Source == nil {
		return nil, errors.New("source is required")
	}
	if opts.Reporter == nil {
		opts.Reporter = status.Noop{}
	}
	return &Operator{
		cfg:      opts.Config,
		src:      opts.Source,
		reporter: opts.Reporter,
	}, nil
}

// Summary describes what a run saw and did.
type Summary struct {
	Services        int
	Features        int
	Operations      int
	NewCount        int
	DeprecatedCount int
	Warnings        []string
	Committed       bool
}

// Run executes the configured mode. Full runs and the narrower modes share
// the same fatal-error policy: an unreachable or empty catalog aborts before
// any file is touched, and write failures surface as errors with no partial
// state left behind.
func (o *Operator) Run(ctx context.Context) (Summary, error) {
	switch {
	case o.cfg.FeaturesOnly:
		return o.runFeaturesOnly(ctx)
	case o.cfg.ServicesOnly:
		return o.runServicesOnly(ctx)
	default:
		return o.runFull(ctx)
	}
}
