// Package source defines the interface to the provider catalog API. The catalog
// is treated as a black box that returns unordered collections of raw operation
// and feature records; all normalization happens downstream in pkg/catalog.
package source

import (
	"context"

	"gitlab.com/tozd/go/errors"
)

// ErrUnavailable is returned when the catalog cannot be reached or reports no
// data at all. Runs abort on it before any file is touched.
var ErrUnavailable = errors.New("provider catalog unavailable or empty")

// RawOperation is a single permission operation as published by the catalog,
// prior to trimming, validation or placeholder synthesis.
type RawOperation struct {
	Namespace     string
	Operation     string
	OperationName string
	ResourceName  string
	IsDataAction  bool
	Description   string
}

// RawFeature is a single feature-registration switch as published by the
// catalog. The feature feed does not expose display namespaces, so Namespace
// may be a placeholder.
type RawFeature struct {
	Namespace         string
	ProviderName      string
	FeatureName       string
	RegistrationState string
	Description       string
}

// Source lists the provider catalog. Implementations must return complete
// collections in a single call; ordering is not guaranteed.
type Source interface {
	// ListProviderOperations returns every published permission operation
	// across all resource providers.
	ListProviderOperations(ctx context.Context) ([]RawOperation, error)

	// ListProviderFeatures returns every feature-registration switch visible
	// to the configured subscription.
	ListProviderFeatures(ctx context.Context) ([]RawFeature, error)
}
