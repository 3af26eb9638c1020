// Package render produces the fixed-width text renderings of the exported
// tables. Column widths are pinned so that successive exports of the same data
// are byte-identical and diff cleanly; everything here is derivable from the
// CSV tables and purely presentational.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cloudpeek/azactions/pkg/catalog"
)

// Fixed column widths. Services and Features share the 56/40 leading pair;
// Operations uses the wider 60/100/100 layout. The last column of each table
// takes the remainder of the line.
const (
	namespaceWidth   = 56
	providerWidth    = 40
	featureWidth     = 48
	stateWidth       = 20
	opNamespaceWidth = 60
	operationWidth   = 100
	opDisplayWidth   = 100
	resourceWidth    = 40
	dataActionWidth  = 14
)

// Pad left-aligns s into a cell of the given width, truncating when the value
// would collide with the next column. Truncation lands on a rune boundary so a
// multi-byte display name never leaves invalid UTF-8 in the artifact.
func Pad(s string, width int) string {
	if width <= 0 {
		return s
	}
	if len(s) >= width {
		cut := width - 1
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return fmt.Sprintf("%-*s", width, s)
}

func headerLine(b *strings.Builder, cells ...string) {
	underline := make([]string, len(cells))
	for i, cell := range cells {
		underline[i] = strings.Repeat("-", len(strings.TrimSpace(cell)))
	}
	for i, cell := range cells {
		b.WriteString(cell)
		underline[i] = Pad(underline[i], len(cell))
	}
	b.WriteByte('\n')
	for _, u := range underline {
		b.WriteString(u)
	}
	b.WriteByte('\n')
}

// Services renders the services table.
func Services(records []catalog.ServiceRecord) string {
	var b strings.Builder
	headerLine(&b,
		Pad("ProviderNamespace", namespaceWidth),
		Pad("ProviderName", providerWidth),
		"Description")
	for _, r := range records {
		b.WriteString(Pad(r.Namespace, namespaceWidth))
		b.WriteString(Pad(r.ProviderName, providerWidth))
		b.WriteString(r.Description)
		b.WriteByte('\n')
	}
	return b.String()
}

// Features renders the features table.
func Features(records []catalog.FeatureRecord) string {
	var b strings.Builder
	headerLine(&b,
		Pad("ProviderNamespace", namespaceWidth),
		Pad("ProviderName", providerWidth),
		Pad("FeatureName", featureWidth),
		Pad("RegistrationState", stateWidth),
		"Description")
	for _, r := range records {
		b.WriteString(Pad(r.Namespace, namespaceWidth))
		b.WriteString(Pad(r.ProviderName, providerWidth))
		b.WriteString(Pad(r.FeatureName, featureWidth))
		b.WriteString(Pad(r.RegistrationState, stateWidth))
		b.WriteString(r.Description)
		b.WriteByte('\n')
	}
	return b.String()
}

// Operations renders the operations table.
func Operations(records []catalog.OperationRecord) string {
	var b strings.Builder
	headerLine(&b,
		Pad("ProviderNamespace", opNamespaceWidth),
		Pad("Operation", operationWidth),
		Pad("OperationName", opDisplayWidth),
		Pad("ResourceName", resourceWidth),
		Pad("IsDataAction", dataActionWidth),
		"Description")
	for _, r := range records {
		b.WriteString(Pad(r.Namespace, opNamespaceWidth))
		b.WriteString(Pad(r.Operation, operationWidth))
		b.WriteString(Pad(r.OperationName, opDisplayWidth))
		b.WriteString(Pad(r.ResourceName, resourceWidth))
		b.WriteString(Pad(strconv.FormatBool(r.IsDataAction), dataActionWidth))
		b.WriteString(r.Description)
		b.WriteByte('\n')
	}
	return b.String()
}
