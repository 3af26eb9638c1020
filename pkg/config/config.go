// Package config resolves the run configuration: defaults, then an optional
// YAML file, then environment overrides. CLI flags are merged on top by cmd.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSnapshotPath = "AzureServiceActions.csv"
	DefaultHistoryPath  = "AzureHistory.txt"
	DefaultServicesPath = "AzureServices.csv"
	DefaultFeaturesPath = "AzureFeatures.csv"

	// DefaultNote is the Description of the reserved first row in note mode.
	DefaultNote = "This file is generated; edits will be overwritten on the next committed run."

	defaultLogLevel = "info"
)

// Config is the full configuration surface of a run.
type Config struct {
	// InputSnapshotPath is the previously committed operations snapshot.
	InputSnapshotPath string `yaml:"inputSnapshotPath"`
	// OutputSnapshotPath is where a committed run writes the new snapshot.
	// Empty means same as InputSnapshotPath.
	OutputSnapshotPath string `yaml:"outputSnapshotPath"`
	HistoryLogPath     string `yaml:"historyLogPath"`
	ServicesTablePath  string `yaml:"servicesTablePath"`
	FeaturesTablePath  string `yaml:"featuresTablePath"`

	// Commit enables persistence; without it a run is a dry-run report that
	// only appends to the history log.
	Commit bool `yaml:"commit"`

	ServicesOnly bool `yaml:"servicesOnly"`
	FeaturesOnly bool `yaml:"featuresOnly"`

	// AddNote prepends the reserved note row to the operations export.
	AddNote bool   `yaml:"addNote"`
	Note    string `yaml:"note"`

	// ScanDocumentation is reserved and currently a documented no-op.
	ScanDocumentation bool `yaml:"scanDocumentation"`

	SubscriptionID string `yaml:"subscriptionId"`

	Log Log `yaml:"log"`
}

// Log holds logging settings.
type Log struct {
	Level string `yaml:"level"`
}

// Load reads the config file at path if it exists, applies defaults and
// environment overrides, and validates the result. An empty path or a missing
// file yields the default configuration.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults only; the file is optional.
		case err != nil:
			return nil, errors.Errorf("reading config file: %w", err)
		default:
			decoder := yaml.NewDecoder(strings.NewReader(string(data)))
			decoder.KnownFields(true)
			if err := decoder.Decode(&cfg); err != nil {
				return nil, errors.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.InputSnapshotPath == "" {
		c.InputSnapshotPath = DefaultSnapshotPath
	}
	if c.HistoryLogPath == "" {
		c.HistoryLogPath = DefaultHistoryPath
	}
	if c.ServicesTablePath == "" {
		c.ServicesTablePath = DefaultServicesPath
	}
	if c.FeaturesTablePath == "" {
		c.FeaturesTablePath = DefaultFeaturesPath
	}
	if c.Note == "" {
		c.Note = DefaultNote
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("AZACTIONS_INPUT_SNAPSHOT"); v != "" {
		c.InputSnapshotPath = v
	}
	if v := os.Getenv("AZACTIONS_OUTPUT_SNAPSHOT"); v != "" {
		c.OutputSnapshotPath = v
	}
	if v := os.Getenv("AZACTIONS_HISTORY_LOG"); v != "" {
		c.HistoryLogPath = v
	}
	if v := os.Getenv("AZACTIONS_SUBSCRIPTION_ID"); v != "" {
		c.SubscriptionID = v
	} else if v := os.Getenv("AZURE_SUBSCRIPTION_ID"); v != "" && c.SubscriptionID == "" {
		c.SubscriptionID = v
	}
	if v := os.Getenv("AZACTIONS_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate rejects contradictory mode combinations.
func (c *Config) Validate() error {
	if c.ServicesOnly && c.FeaturesOnly {
		return errors.New("servicesOnly and featuresOnly are mutually exclusive")
	}
	return nil
}

// ResolvedOutputPath returns the snapshot path a committed run writes to.
func (c *Config) ResolvedOutputPath() string {
	if c.OutputSnapshotPath != "" {
		return c.OutputSnapshotPath
	}
	return c.InputSnapshotPath
}

// TextPathFor returns the fixed-width rendering path that sits alongside a
// CSV table, e.g. AzureServices.csv -> AzureServices.txt.
func TextPathFor(tablePath string) string {
	return strings.TrimSuffix(tablePath, filepath.Ext(tablePath)) + ".txt"
}
