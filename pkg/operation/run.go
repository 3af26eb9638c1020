package operation

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/cloudpeek/azactions/pkg/catalog"
	"github.com/cloudpeek/azactions/pkg/config"
	"github.com/cloudpeek/azactions/pkg/diff"
	"github.com/cloudpeek/azactions/pkg/history"
	"github.com/cloudpeek/azactions/pkg/render"
	"github.com/cloudpeek/azactions/pkg/snapshot"
	"github.com/cloudpeek/azactions/pkg/source"
)

// scanDocsWarning is surfaced whenever documentation scanning is requested:
// the option is reserved and deliberately not implemented, and must never be
// silently ignored.
const scanDocsWarning = "Warning: documentation scanning is reserved and not implemented; the option was ignored."

func (o *Operator) runFull(ctx context.Context) (Summary, error) {
	logger := zerolog.Ctx(ctx)

	warnings := o.modeWarnings(ctx)

	rawOps, err := o.src.ListProviderOperations(ctx)
	if err != nil {
		return Summary{}, errors.Errorf("listing provider operations: %w", err)
	}
	if len(rawOps) == 0 {
		return Summary{}, errors.Errorf("provider operations feed: %w", source.ErrUnavailable)
	}
	rawFeatures, err := o.src.ListProviderFeatures(ctx)
	if err != nil {
		return Summary{}, errors.Errorf("listing provider features: %w", err)
	}

	extractor := catalog.NewExtractor(o.reporter)
	services := extractor.Services(rawOps, rawFeatures)
	operations := extractor.Operations(rawOps, services)
	features := extractor.Features(rawFeatures)

	previous := snapshot.Load(o.cfg.InputSnapshotPath)
	if previous.Missing {
		logger.Info().Str("path", o.cfg.InputSnapshotPath).Msg("no previous snapshot; every operation will report as new")
	}
	warnings = append(warnings, extractor.Warnings()...)
	warnings = append(warnings, previous.Warnings...)

	addedServices, removedServices := diff.ServiceNames(
		catalog.ProviderNames(previous.Records),
		catalog.ProviderNames(operations),
	)
	delta := diff.Operations(previous.Records, operations)
	newCount, deprecatedCount := diff.Count(delta)

	actionTotal := 0
	for _, record := range operations {
		if !record.IsPlaceholder() {
			actionTotal++
		}
	}

	entry := history.Entry{
		Date:            time.Now(),
		TotalOperations: actionTotal,
		ServiceCount:    len(services),
		Warnings:        warnings,
		AddedServices:   addedServices,
		RemovedServices: removedServices,
		Delta:           delta,
	}
	if err := history.Append(o.cfg.HistoryLogPath, entry); err != nil {
		return Summary{}, errors.Errorf("recording history: %w", err)
	}

	summary := Summary{
		Services:        len(services),
		Features:        len(features),
		Operations:      actionTotal,
		NewCount:        newCount,
		DeprecatedCount: deprecatedCount,
		Warnings:        warnings,
	}
	if !o.cfg.Commit {
		logger.Info().Msg("dry run; snapshot and table exports not written")
		return summary, nil
	}

	exported := operations
	if o.cfg.AddNote {
		exported = append([]catalog.OperationRecord{snapshot.NoteRow(o.cfg.Note)}, operations...)
	}
	// The snapshot goes last: the tables and renderings are derived artifacts,
	// and a failure among them must not leave a snapshot that already moved on.
	if err := snapshot.WriteServices(o.cfg.ServicesTablePath, services); err != nil {
		return summary, errors.Errorf("writing services table: %w", err)
	}
	if err := snapshot.WriteFeatures(o.cfg.FeaturesTablePath, features); err != nil {
		return summary, errors.Errorf("writing features table: %w", err)
	}
	if err := o.writeRenderings(services, features, exported); err != nil {
		return summary, err
	}
	if err := snapshot.Commit(o.cfg.ResolvedOutputPath(), exported); err != nil {
		return summary, errors.Errorf("committing snapshot: %w", err)
	}
	summary.Committed = true
	logger.Info().Str("snapshot", o.cfg.ResolvedOutputPath()).Msg("snapshot committed")
	return summary, nil
}

func (o *Operator) runServicesOnly(ctx context.Context) (Summary, error) {
	rawOps, err := o.src.ListProviderOperations(ctx)
	if err != nil {
		return Summary{}, errors.Errorf("listing provider operations: %w", err)
	}
	if len(rawOps) == 0 {
		return Summary{}, errors.Errorf("provider operations feed: %w", source.ErrUnavailable)
	}
	rawFeatures, err := o.src.ListProviderFeatures(ctx)
	if err != nil {
		return Summary{}, errors.Errorf("listing provider features: %w", err)
	}

	extractor := catalog.NewExtractor(o.reporter)
	services := extractor.Services(rawOps, rawFeatures)
	warnings := append(o.modeWarnings(ctx), extractor.Warnings()...)

	summary := Summary{Services: len(services), Warnings: warnings}
	if !o.cfg.Commit {
		return summary, nil
	}
	if err := snapshot.WriteServices(o.cfg.ServicesTablePath, services); err != nil {
		return summary, errors.Errorf("writing services table: %w", err)
	}
	if err := writeRendering(config.TextPathFor(o.cfg.ServicesTablePath), render.Services(services)); err != nil {
		return summary, err
	}
	summary.Committed = true
	return summary, nil
}

func (o *Operator) runFeaturesOnly(ctx context.Context) (Summary, error) {
	rawFeatures, err := o.src.ListProviderFeatures(ctx)
	if err != nil {
		return Summary{}, errors.Errorf("listing provider features: %w", err)
	}
	if len(rawFeatures) == 0 {
		return Summary{}, errors.Errorf("provider features feed: %w", source.ErrUnavailable)
	}

	extractor := catalog.NewExtractor(o.reporter)
	features := extractor.Features(rawFeatures)
	warnings := append(o.modeWarnings(ctx), extractor.Warnings()...)

	summary := Summary{Features: len(features), Warnings: warnings}
	if !o.cfg.Commit {
		return summary, nil
	}
	if err := snapshot.WriteFeatures(o.cfg.FeaturesTablePath, features); err != nil {
		return summary, errors.Errorf("writing features table: %w", err)
	}
	if err := writeRendering(config.TextPathFor(o.cfg.FeaturesTablePath), render.Features(features)); err != nil {
		return summary, err
	}
	summary.Committed = true
	return summary, nil
}

func (o *Operator) modeWarnings(ctx context.Context) []string {
	var warnings []string
	if o.cfg.ScanDocumentation {
		zerolog.Ctx(ctx).Warn().Msg("documentation scanning requested but not implemented")
		o.reporter.Warn(scanDocsWarning)
		warnings = append(warnings, scanDocsWarning)
	}
	return warnings
}

func (o *Operator) writeRenderings(services []catalog.ServiceRecord, features []catalog.FeatureRecord, operations []catalog.OperationRecord) error {
	renderings := []struct {
		path    string
		content string
	}{
		{config.TextPathFor(o.cfg.ServicesTablePath), render.Services(services)},
		{config.TextPathFor(o.cfg.FeaturesTablePath), render.Features(features)},
		{config.TextPathFor(o.cfg.ResolvedOutputPath()), render.Operations(operations)},
	}
	for _, r := range renderings {
		if err := writeRendering(r.path, r.content); err != nil {
			return err
		}
	}
	return nil
}

func writeRendering(path, content string) error {
	err := snapshot.WriteText(path, func(w io.Writer) error {
		_, err := fmt.Fprint(w, content)
		return err
	})
	if err != nil {
		return errors.Errorf("writing rendering %s: %w", path, err)
	}
	return nil
}
