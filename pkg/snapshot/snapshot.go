// Package snapshot persists the operation snapshot and the exported tables as
// flat delimited text. Loading is deliberately lenient: a missing or damaged
// snapshot degrades to an empty or partial previous snapshot with warnings,
// because the first run of a new installation has nothing to compare against.
// Writing is all-or-nothing: every file goes through a temp-file rename.
package snapshot

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"gitlab.com/tozd/go/errors"

	"github.com/cloudpeek/azactions/pkg/catalog"
)

// LoadResult is a previous snapshot plus everything worth telling the user
// about how it parsed.
type LoadResult struct {
	Records  []catalog.OperationRecord
	Warnings []string
	// Missing reports that no snapshot file existed, i.e. a first run.
	Missing bool
}

// Load reads an operations snapshot. It never fails: a missing file yields an
// empty snapshot, a damaged file yields whatever rows parsed, and both cases
// are described in Warnings. Records come back sorted by Operation.
func Load(path string) LoadResult {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return LoadResult{Missing: true}
		}
		return LoadResult{
			Missing:  true,
			Warnings: []string{fmt.Sprintf("previous snapshot %s is unreadable (%v); starting from an empty snapshot", path, err)},
		}
	}
	defer f.Close()

	result := parseSnapshot(f, path)
	sort.Slice(result.Records, func(i, j int) bool {
		return result.Records[i].Operation < result.Records[j].Operation
	})
	return result
}

func parseSnapshot(r io.Reader, path string) LoadResult {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return LoadResult{
			Warnings: []string{fmt.Sprintf("previous snapshot %s has no readable header; starting from an empty snapshot", path)},
		}
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	opCol, ok := index["Operation"]
	if !ok {
		return LoadResult{
			Warnings: []string{fmt.Sprintf("previous snapshot %s is missing the Operation column; starting from an empty snapshot", path)},
		}
	}

	var result LoadResult
	seen := make(map[string]bool)
	line := 1
	for {
		line++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("snapshot %s line %d is unparsable and was skipped (%v)", path, line, err))
			continue
		}
		record, warn := rowToRecord(row, index, opCol)
		if warn != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("snapshot %s line %d: %s", path, line, warn))
		}
		if record == nil {
			continue
		}
		if !record.IsPlaceholder() {
			if seen[record.Operation] {
				result.Warnings = append(result.Warnings, fmt.Sprintf("snapshot %s line %d duplicates operation %q; keeping the first", path, line, record.Operation))
				continue
			}
			seen[record.Operation] = true
		}
		result.Records = append(result.Records, *record)
	}
	return result
}

// rowToRecord maps one CSV row by header position. The provider name is not a
// column of its own: it is re-derived from the operation string, or for
// placeholder rows taken from ResourceName where Operations synthesis put it.
func rowToRecord(row []string, index map[string]int, opCol int) (*catalog.OperationRecord, string) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	if opCol >= len(row) {
		return nil, "row is shorter than the header and was skipped"
	}

	record := catalog.OperationRecord{
		Namespace:     field("ProviderNamespace"),
		Operation:     strings.TrimSpace(row[opCol]),
		OperationName: field("OperationName"),
		ResourceName:  field("ResourceName"),
		Description:   field("Description"),
	}
	warn := ""
	if raw := field("IsDataAction"); raw != "" {
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(raw)))
		if err != nil {
			warn = fmt.Sprintf("unrecognized IsDataAction %q treated as false", raw)
		}
		record.IsDataAction = b
	}

	if provider, ok := catalog.ProviderOf(record.Operation); ok {
		record.ProviderName = provider
	} else if record.IsPlaceholder() {
		record.ProviderName = record.ResourceName
	} else {
		return nil, fmt.Sprintf("operation %q has no provider segment and was skipped", record.Operation)
	}
	return &record, warn
}

// Commit atomically replaces the operations snapshot with records.
func Commit(path string, records []catalog.OperationRecord) error {
	return writeCSV(path, &records)
}

// WriteServices atomically writes the services table.
func WriteServices(path string, records []catalog.ServiceRecord) error {
	return writeCSV(path, &records)
}

// WriteFeatures atomically writes the features table.
func WriteFeatures(path string, records []catalog.FeatureRecord) error {
	return writeCSV(path, &records)
}

// NoteRow builds the reserved first row used in note mode: no operation, just
// a descriptive note in the Description column.
func NoteRow(note string) catalog.OperationRecord {
	return catalog.OperationRecord{
		Namespace:   catalog.PlaceholderNamespace,
		Description: note,
	}
}

func writeCSV(path string, records interface{}) error {
	write := func(w io.Writer) error {
		return gocsv.Marshal(records, w)
	}
	return WriteText(path, write)
}

// WriteText atomically writes a text artifact: content is produced into a temp
// file in the destination directory, synced, then renamed over the target.
func WriteText(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Errorf("creating temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return errors.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
