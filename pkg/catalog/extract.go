// Package catalog normalizes raw provider catalog feeds into the three record
// sets this tool exports: Services, Features and Operations. All transforms are
// pure with respect to their inputs; per-record problems are collected as
// warnings on the Extractor and never abort an extraction pass.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cloudpeek/azactions/pkg/source"
	"github.com/cloudpeek/azactions/pkg/status"
)

// privateProviderPrefix and testProviderName identify internal sentinel
// providers that leak into the feature feed and must not become services.
const (
	privateProviderPrefix = "Private."
	testProviderName      = "Providers.Test"
)

// Extractor runs the normalization passes and accumulates warnings across
// them. A single Extractor is meant to serve one run.
type Extractor struct {
	reporter status.Reporter
	warnings []string
	seen     map[string]bool
}

// NewExtractor creates an Extractor reporting progress through reporter.
// Pass status.Noop{} to disable reporting.
func NewExtractor(reporter status.Reporter) *Extractor {
	if reporter == nil {
		reporter = status.Noop{}
	}
	return &Extractor{reporter: reporter, seen: make(map[string]bool)}
}

// Warnings returns the non-fatal problems recorded so far, in order.
func (e *Extractor) Warnings() []string {
	out := make([]string, len(e.warnings))
	copy(out, e.warnings)
	return out
}

// warn records a warning once; the same malformed record surfaces in more than
// one pass and must not be reported twice.
func (e *Extractor) warn(msg string) {
	if e.seen[msg] {
		return
	}
	e.seen[msg] = true
	e.warnings = append(e.warnings, msg)
	e.reporter.Warn(msg)
}

// Services derives one ServiceRecord per distinct provider. Providers come
// from the operation feed first (namespace grouped, provider name taken from
// any member operation string); providers that appear only in the feature feed
// are added with a placeholder namespace, excluding private/test sentinels and
// deduplicating case-insensitively after trimming.
func (e *Extractor) Services(rawOps []source.RawOperation, rawFeatures []source.RawFeature) []ServiceRecord {
	e.reporter.StartStage("Deriving services", len(rawOps)+len(rawFeatures))
	defer e.reporter.EndStage()

	providerByNamespace := make(map[string]string)
	known := make(map[string]bool)
	for _, raw := range rawOps {
		e.reporter.Advance(1)
		op := strings.TrimSpace(raw.Operation)
		provider, ok := ProviderOf(op)
		if !ok {
			e.warn(fmt.Sprintf("operation %q has no provider segment and was skipped", raw.Operation))
			continue
		}
		if _, done := providerByNamespace[raw.Namespace]; !done {
			providerByNamespace[raw.Namespace] = provider
		}
		known[strings.ToLower(provider)] = true
	}

	records := make([]ServiceRecord, 0, len(providerByNamespace))
	for namespace, provider := range providerByNamespace {
		records = append(records, ServiceRecord{Namespace: namespace, ProviderName: provider})
	}

	// The operation feed under-reports some providers; the feature feed
	// reveals them. The placeholder namespace records that provenance gap.
	extras := make(map[string]bool)
	for _, raw := range rawFeatures {
		e.reporter.Advance(1)
		provider := strings.TrimSpace(raw.ProviderName)
		if provider == "" || provider == testProviderName || strings.HasPrefix(provider, privateProviderPrefix) {
			continue
		}
		key := strings.ToLower(provider)
		if known[key] || extras[key] {
			continue
		}
		extras[key] = true
		records = append(records, ServiceRecord{Namespace: PlaceholderNamespace, ProviderName: provider})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].ProviderName != records[j].ProviderName {
			return records[i].ProviderName < records[j].ProviderName
		}
		return records[i].Namespace < records[j].Namespace
	})
	return records
}

// Operations maps raw operation entries 1:1 to OperationRecords and
// synthesizes one placeholder row for every service with zero operations, so
// Services and Operations always agree on the provider-name set.
func (e *Extractor) Operations(rawOps []source.RawOperation, services []ServiceRecord) []OperationRecord {
	e.reporter.StartStage("Extracting operations", len(rawOps))
	defer e.reporter.EndStage()

	records := make([]OperationRecord, 0, len(rawOps)+len(services))
	covered := make(map[string]bool)
	for _, raw := range rawOps {
		e.reporter.Advance(1)
		op := strings.TrimSpace(raw.Operation)
		provider, ok := ProviderOf(op)
		if !ok {
			e.warn(fmt.Sprintf("operation %q has no provider segment and was skipped", raw.Operation))
			continue
		}
		records = append(records, OperationRecord{
			Namespace:     raw.Namespace,
			ProviderName:  provider,
			Operation:     op,
			OperationName: raw.OperationName,
			ResourceName:  raw.ResourceName,
			Description:   raw.Description,
			IsDataAction:  raw.IsDataAction,
		})
		covered[strings.ToLower(provider)] = true
	}

	found := len(records)
	missing := 0
	for _, svc := range services {
		if covered[strings.ToLower(svc.ProviderName)] {
			continue
		}
		missing++
		records = append(records, OperationRecord{
			Namespace:     PlaceholderNamespace,
			ProviderName:  svc.ProviderName,
			OperationName: PlaceholderOperationName,
			ResourceName:  svc.ProviderName,
			Description:   fmt.Sprintf("Provider %s was discovered through the feature listing and publishes no operations.", svc.ProviderName),
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].ProviderName != records[j].ProviderName {
			return records[i].ProviderName < records[j].ProviderName
		}
		return records[i].Operation < records[j].Operation
	})

	e.reporter.Info(fmt.Sprintf("%d operations found; %d providers publish none", found, missing))
	return records
}

// Features maps raw feature entries 1:1 to FeatureRecords. Features-only mode
// is a narrower pull than the full operation enumeration, so there is no
// synthesis and no cross-referencing against the operation feed.
func (e *Extractor) Features(rawFeatures []source.RawFeature) []FeatureRecord {
	e.reporter.StartStage("Extracting features", len(rawFeatures))
	defer e.reporter.EndStage()

	records := make([]FeatureRecord, 0, len(rawFeatures))
	for _, raw := range rawFeatures {
		e.reporter.Advance(1)
		records = append(records, FeatureRecord{
			Namespace:         raw.Namespace,
			ProviderName:      raw.ProviderName,
			FeatureName:       raw.FeatureName,
			RegistrationState: raw.RegistrationState,
			Description:       raw.Description,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].ProviderName != records[j].ProviderName {
			return records[i].ProviderName < records[j].ProviderName
		}
		return records[i].FeatureName < records[j].FeatureName
	})
	return records
}
