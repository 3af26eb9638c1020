// Package history renders and appends the cumulative change log. The log is
// append-only: a banner is written exactly once when the file is created, and
// every run afterwards appends one entry block. Each block is built in memory
// and written with a single call so a failed append cannot corrupt entries
// already on disk.
package history

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/cloudpeek/azactions/pkg/diff"
	"github.com/cloudpeek/azactions/pkg/render"
)

const banner = `Azure provider operation history.
One entry block is appended per run; do not edit this file by hand.
`

const (
	dividerWidth    = 114
	operationWidth  = 100
	dataActionWidth = 14
)

// Entry is one run's change report.
type Entry struct {
	Date            time.Time
	TotalOperations int
	ServiceCount    int
	Warnings        []string
	AddedServices   []string
	RemovedServices []string
	Delta           []diff.Entry
}

// Render produces the entry's text block: divider, one-line summary, warnings
// verbatim, the service-name delta, then the Deprecated and New tables.
func Render(e Entry) string {
	added, deprecated := diff.Count(e.Delta)

	var b strings.Builder
	b.WriteString(strings.Repeat("=", dividerWidth))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%s: %d actions across %d services. %d changes: %d new; %d deprecated.\n",
		e.Date.Format("2006-01-02"), e.TotalOperations, e.ServiceCount, len(e.Delta), added, deprecated)
	for _, warning := range e.Warnings {
		b.WriteString(warning)
		b.WriteByte('\n')
	}
	writeNameList(&b, "New service names", e.AddedServices)
	writeNameList(&b, "Deprecated service names", e.RemovedServices)
	writeDeltaTable(&b, "Deprecated operations", diff.ByStatus(e.Delta, diff.StatusDeprecated))
	writeDeltaTable(&b, "New operations", diff.ByStatus(e.Delta, diff.StatusNew))
	return b.String()
}

// Append writes the entry to the log at path, creating the file with its
// banner first if it does not exist yet.
func Append(path string, e Entry) error {
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	var block strings.Builder
	if fresh {
		block.WriteString(banner)
	}
	block.WriteString(Render(e))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Errorf("opening history log %s: %w", path, err)
	}
	if _, err := f.WriteString(block.String()); err != nil {
		f.Close()
		return errors.Errorf("appending history entry to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.Errorf("closing history log %s: %w", path, err)
	}
	return nil
}

func writeNameList(b *strings.Builder, title string, names []string) {
	if len(names) == 0 {
		fmt.Fprintf(b, "%s: none\n", title)
		return
	}
	fmt.Fprintf(b, "%s: %s\n", title, strings.Join(names, "; "))
}

func writeDeltaTable(b *strings.Builder, title string, entries []diff.Entry) {
	fmt.Fprintf(b, "\n%s (%d):\n", title, len(entries))
	if len(entries) == 0 {
		return
	}
	b.WriteString(render.Pad("Operation", operationWidth))
	b.WriteString(render.Pad("IsDataAction", dataActionWidth))
	b.WriteString("Description\n")
	b.WriteString(render.Pad(strings.Repeat("-", len("Operation")), operationWidth))
	b.WriteString(render.Pad(strings.Repeat("-", len("IsDataAction")), dataActionWidth))
	b.WriteString(strings.Repeat("-", len("Description")))
	b.WriteByte('\n')
	for _, entry := range entries {
		b.WriteString(render.Pad(entry.Record.Operation, operationWidth))
		b.WriteString(render.Pad(strconv.FormatBool(entry.Record.IsDataAction), dataActionWidth))
		b.WriteString(entry.Record.Description)
		b.WriteByte('\n')
	}
}
