package operation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/cloudpeek/azactions/pkg/config"
	"github.com/cloudpeek/azactions/pkg/source"
)

type mockSource struct {
	operations []source.RawOperation
	features   []source.RawFeature
	opsErr     error
	featErr    error
}

func (m *mockSource) ListProviderOperations(ctx context.Context) ([]source.RawOperation, error) {
	return m.operations, m.opsErr
}

func (m *mockSource) ListProviderFeatures(ctx context.Context) ([]source.RawFeature, error) {
	return m.features, m.featErr
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		InputSnapshotPath: filepath.Join(dir, "actions.csv"),
		HistoryLogPath:    filepath.Join(dir, "history.txt"),
		ServicesTablePath: filepath.Join(dir, "services.csv"),
		FeaturesTablePath: filepath.Join(dir, "features.csv"),
		Note:              config.DefaultNote,
	}
}

func computeSource() *mockSource {
	return &mockSource{
		operations: []source.RawOperation{
			{Namespace: "Azure Compute", Operation: "Microsoft.Compute/virtualMachines/read", OperationName: "Read VM"},
			{Namespace: "Azure Compute", Operation: "Microsoft.Compute/virtualMachines/write", OperationName: "Write VM"},
		},
		features: []source.RawFeature{
			{Namespace: "-", ProviderName: "Microsoft.Quantum", FeatureName: "BetaAccess", RegistrationState: "Registered"},
		},
	}
}

func newOperator(t *testing.T, cfg *config.Config, src source.Source) *Operator {
	t.Helper()
	op, err := New(Options{Config: cfg, Source: src})
	require.NoError(t, err)
	return op
}

func TestRunDryRunAppendsHistoryOnly(t *testing.T) {
	cfg := testConfig(t)
	op := newOperator(t, cfg, computeSource())

	summary, err := op.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, summary.Committed)
	assert.Equal(t, 2, summary.Operations)
	assert.Equal(t, 2, summary.Services, "Microsoft.Compute plus the feature-only Microsoft.Quantum")
	assert.Equal(t, 2, summary.NewCount, "first run reports every operation as new")
	assert.Equal(t, 0, summary.DeprecatedCount)

	_, err = os.Stat(cfg.InputSnapshotPath)
	assert.True(t, os.IsNotExist(err), "dry run must not write the snapshot")
	_, err = os.Stat(cfg.ServicesTablePath)
	assert.True(t, os.IsNotExist(err), "dry run must not write table exports")

	history, err := os.ReadFile(cfg.HistoryLogPath)
	require.NoError(t, err)
	assert.Contains(t, string(history), "2 new; 0 deprecated")
}

func TestRunCommitThenUnchangedRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Commit = true
	src := computeSource()

	_, err := newOperator(t, cfg, src).Run(context.Background())
	require.NoError(t, err)

	// Second run against the committed snapshot sees no changes.
	summary, err := newOperator(t, cfg, src).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Committed)
	assert.Equal(t, 0, summary.NewCount)
	assert.Equal(t, 0, summary.DeprecatedCount)

	history, err := os.ReadFile(cfg.HistoryLogPath)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(history), "Azure provider operation history"), "banner written once")
	assert.Contains(t, string(history), "0 changes: 0 new; 0 deprecated.")

	for _, path := range []string{
		cfg.InputSnapshotPath,
		cfg.ServicesTablePath,
		cfg.FeaturesTablePath,
		config.TextPathFor(cfg.InputSnapshotPath),
		config.TextPathFor(cfg.ServicesTablePath),
		config.TextPathFor(cfg.FeaturesTablePath),
	} {
		_, err := os.Stat(path)
		assert.NoError(t, err, "committed run writes %s", path)
	}
}

// TestRunSnapshotCommittedLast blocks only the snapshot replacement (the
// output path is an existing directory, so the final rename fails) and checks
// that the derived artifacts were already written: the snapshot is the last
// file a committed run touches.
func TestRunSnapshotCommittedLast(t *testing.T) {
	cfg := testConfig(t)
	cfg.Commit = true
	cfg.OutputSnapshotPath = filepath.Join(filepath.Dir(cfg.InputSnapshotPath), "blocked")
	require.NoError(t, os.Mkdir(cfg.OutputSnapshotPath, 0o755))

	summary, err := newOperator(t, cfg, computeSource()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "committing snapshot")
	assert.False(t, summary.Committed)

	for _, path := range []string{
		cfg.ServicesTablePath,
		cfg.FeaturesTablePath,
		config.TextPathFor(cfg.ServicesTablePath),
		config.TextPathFor(cfg.FeaturesTablePath),
	} {
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr, "derived artifact %s is written before the snapshot", path)
	}
	_, statErr := os.Stat(cfg.InputSnapshotPath)
	assert.True(t, os.IsNotExist(statErr), "previous snapshot stays untouched")
}

func TestRunDetectsDeprecations(t *testing.T) {
	cfg := testConfig(t)
	cfg.Commit = true
	src := computeSource()
	_, err := newOperator(t, cfg, src).Run(context.Background())
	require.NoError(t, err)

	src.operations = src.operations[:1] // write disappears
	summary, err := newOperator(t, cfg, src).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.NewCount)
	assert.Equal(t, 1, summary.DeprecatedCount)

	history, err := os.ReadFile(cfg.HistoryLogPath)
	require.NoError(t, err)
	assert.Contains(t, string(history), "Microsoft.Compute/virtualMachines/write")
}

// TestRunUnchangedDotExtendedProviders re-runs an identical source whose
// provider names extend each other ("Contoso.Sync", "Contoso.Sync.Jobs").
// Provider-grouped extraction order diverges from operation-key order for such
// names, and the second run must still report zero changes.
func TestRunUnchangedDotExtendedProviders(t *testing.T) {
	cfg := testConfig(t)
	cfg.Commit = true
	src := &mockSource{
		operations: []source.RawOperation{
			{Namespace: "Contoso Sync", Operation: "Contoso.Sync/jobs/read"},
			{Namespace: "Contoso Sync Jobs", Operation: "Contoso.Sync.Jobs/runs/read"},
		},
	}

	_, err := newOperator(t, cfg, src).Run(context.Background())
	require.NoError(t, err)

	summary, err := newOperator(t, cfg, src).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.NewCount)
	assert.Equal(t, 0, summary.DeprecatedCount)

	history, err := os.ReadFile(cfg.HistoryLogPath)
	require.NoError(t, err)
	assert.Contains(t, string(history), "0 changes: 0 new; 0 deprecated.")
}

// TestRunMalformedOperation is the bad-record scenario: the run completes,
// the warning names the offending string, and the committed snapshot excludes it.
func TestRunMalformedOperation(t *testing.T) {
	cfg := testConfig(t)
	cfg.Commit = true
	src := computeSource()
	src.operations = append(src.operations, source.RawOperation{Namespace: "Broken", Operation: "badstring"})

	summary, err := newOperator(t, cfg, src).Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, summary.Warnings)
	joined := strings.Join(summary.Warnings, "\n")
	assert.Contains(t, joined, "badstring")

	snapshot, err := os.ReadFile(cfg.InputSnapshotPath)
	require.NoError(t, err)
	assert.NotContains(t, string(snapshot), "badstring")

	history, err := os.ReadFile(cfg.HistoryLogPath)
	require.NoError(t, err)
	assert.Contains(t, string(history), "badstring", "warnings reach the history entry")
}

func TestRunAddNotePrependsNoteRow(t *testing.T) {
	cfg := testConfig(t)
	cfg.Commit = true
	cfg.AddNote = true
	cfg.Note = "Reserved note row."

	_, err := newOperator(t, cfg, computeSource()).Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.InputSnapshotPath)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	require.Greater(t, len(lines), 2)
	assert.Contains(t, lines[1], "Reserved note row.", "note row leads the export")
}

func TestRunScanDocsIsDocumentedNoop(t *testing.T) {
	cfg := testConfig(t)
	cfg.ScanDocumentation = true

	summary, err := newOperator(t, cfg, computeSource()).Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, summary.Warnings)
	assert.Contains(t, summary.Warnings[0], "not implemented")

	history, err := os.ReadFile(cfg.HistoryLogPath)
	require.NoError(t, err)
	assert.Contains(t, string(history), "not implemented")
}

func TestRunSourceFailuresTouchNothing(t *testing.T) {
	tests := []struct {
		name string
		src  *mockSource
	}{
		{name: "transport_error", src: &mockSource{opsErr: errors.New("boom")}},
		{name: "empty_operations_feed", src: &mockSource{}},
		{name: "features_error", src: func() *mockSource {
			s := computeSource()
			s.featErr = errors.New("boom")
			return s
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Commit = true

			_, err := newOperator(t, cfg, tt.src).Run(context.Background())
			require.Error(t, err)

			for _, path := range []string{cfg.InputSnapshotPath, cfg.HistoryLogPath, cfg.ServicesTablePath} {
				_, statErr := os.Stat(path)
				assert.True(t, os.IsNotExist(statErr), "%s must not exist after an aborted run", path)
			}
		})
	}
}

func TestRunServicesOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.Commit = true
	cfg.ServicesOnly = true

	summary, err := newOperator(t, cfg, computeSource()).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Committed)
	assert.Equal(t, 2, summary.Services)

	_, err = os.Stat(cfg.ServicesTablePath)
	assert.NoError(t, err)
	_, err = os.Stat(cfg.HistoryLogPath)
	assert.True(t, os.IsNotExist(err), "services-only runs do not diff or write history")
	_, err = os.Stat(cfg.InputSnapshotPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRunFeaturesOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.Commit = true
	cfg.FeaturesOnly = true

	summary, err := newOperator(t, cfg, computeSource()).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Committed)
	assert.Equal(t, 1, summary.Features)

	data, err := os.ReadFile(cfg.FeaturesTablePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "BetaAccess")

	_, err = os.Stat(cfg.HistoryLogPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRunFeaturesOnlyEmptyFeedAborts(t *testing.T) {
	cfg := testConfig(t)
	cfg.FeaturesOnly = true

	_, err := newOperator(t, cfg, &mockSource{}).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, source.ErrUnavailable)
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{Source: &mockSource{}})
	require.Error(t, err)

	_, err = New(Options{Config: &config.Config{}})
	require.Error(t, err)
}
