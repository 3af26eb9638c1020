package catalog

import "strings"

const (
	// PlaceholderNamespace marks a provider discovered only through the
	// feature feed, which carries no display namespace.
	PlaceholderNamespace = "-"

	// PlaceholderOperationName is the sentinel operation name for a provider
	// with zero discovered operations. Rows carrying it have an empty
	// Operation and are excluded from snapshot comparison.
	PlaceholderOperationName = "** No operations discovered **"
)

// ServiceRecord is one resource provider: a display namespace paired with its
// canonical dotted provider name.
type ServiceRecord struct {
	Namespace    string `csv:"ProviderNamespace"`
	ProviderName string `csv:"ProviderName"`
	Description  string `csv:"Description"`
}

// FeatureRecord is one feature-registration switch on a provider.
type FeatureRecord struct {
	Namespace         string `csv:"ProviderNamespace"`
	ProviderName      string `csv:"ProviderName"`
	FeatureName       string `csv:"FeatureName"`
	RegistrationState string `csv:"RegistrationState"`
	Description       string `csv:"Description"`
}

// OperationRecord is one permission operation. Operation is the natural unique
// key within a snapshot; ProviderName is derivable from it and is therefore
// not persisted as its own column. Placeholder rows (empty Operation) keep the
// provider name in ResourceName so identity survives a CSV round-trip.
type OperationRecord struct {
	Namespace     string `csv:"ProviderNamespace"`
	ProviderName  string `csv:"-"`
	Operation     string `csv:"Operation"`
	OperationName string `csv:"OperationName"`
	ResourceName  string `csv:"ResourceName"`
	Description   string `csv:"Description"`
	IsDataAction  bool   `csv:"IsDataAction"`
}

// IsPlaceholder reports whether the record stands in for a provider with no
// discovered operations. Placeholders carry no permission identity.
func (r OperationRecord) IsPlaceholder() bool {
	return r.Operation == ""
}

// ProviderOf returns the canonical provider name encoded in an operation
// string, i.e. the segment before the first '/'.
func ProviderOf(operation string) (string, bool) {
	name, _, found := strings.Cut(operation, "/")
	if !found || name == "" {
		return "", false
	}
	return name, true
}

// ProviderNames returns the distinct provider names present in records,
// counting placeholders, in first-seen order.
func ProviderNames(records []OperationRecord) []string {
	seen := make(map[string]bool, len(records))
	names := make([]string, 0, len(records))
	for _, r := range records {
		if r.ProviderName == "" || seen[r.ProviderName] {
			continue
		}
		seen[r.ProviderName] = true
		names = append(names, r.ProviderName)
	}
	return names
}
