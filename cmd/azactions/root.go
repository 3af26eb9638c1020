package main

import (
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/cloudpeek/azactions/pkg/config"
	"github.com/cloudpeek/azactions/pkg/operation"
	"github.com/cloudpeek/azactions/pkg/source/azure"
	"github.com/cloudpeek/azactions/pkg/status"
)

type rootFlags struct {
	configFile   string
	input        string
	output       string
	historyLog   string
	commit       bool
	servicesOnly bool
	featuresOnly bool
	addNote      bool
	scanDocs     bool
	subscription string
	debug        bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "azactions",
		Short: "Track Azure resource provider operations, features and their changes over time",
		Long: `azactions pulls the Azure catalog of resource providers, their permission
operations and feature-registration switches, exports them as tables, and
appends a change report against the previously committed snapshot to a
cumulative history log. Without --commit a run is a dry-run report only.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configFile, "config", "c", "", "optional YAML config file")
	cmd.Flags().StringVarP(&flags.input, "input", "i", config.DefaultSnapshotPath, "previous operations snapshot")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "snapshot path written on commit (default: same as --input)")
	cmd.Flags().StringVar(&flags.historyLog, "history", config.DefaultHistoryPath, "cumulative history log")
	cmd.Flags().BoolVar(&flags.commit, "commit", false, "persist the snapshot and table exports")
	cmd.Flags().BoolVar(&flags.servicesOnly, "services-only", false, "export the services table only")
	cmd.Flags().BoolVar(&flags.featuresOnly, "features-only", false, "export the features table only")
	cmd.Flags().BoolVar(&flags.addNote, "add-note", false, "prepend the reserved note row to the operations export")
	cmd.Flags().BoolVar(&flags.scanDocs, "scan-docs", false, "reserved; documentation scanning is not implemented")
	cmd.Flags().StringVar(&flags.subscription, "subscription", "", "Azure subscription id (default: AZURE_SUBSCRIPTION_ID)")
	cmd.Flags().BoolVarP(&flags.debug, "debug", "d", false, "enable debug logging")

	return cmd
}

func run(cmd *cobra.Command, flags *rootFlags) error {
	logger := setupLogging(flags.debug)
	ctx := logger.WithContext(cmd.Context())

	cfg, err := config.Load(flags.configFile)
	if err != nil {
		logger.Error().Err(err).Msg("loading config")
		return err
	}
	mergeFlags(cmd, flags, cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		logger.Error().Err(err).Msg("building Azure credential")
		return errors.Errorf("building Azure credential: %w", err)
	}
	src, err := azure.New(cfg.SubscriptionID, cred)
	if err != nil {
		logger.Error().Err(err).Msg("creating catalog client")
		return err
	}

	reporter := status.NewConsole(os.Stdout, logger)
	op, err := operation.New(operation.Options{
		Config:   cfg,
		Source:   src,
		Reporter: reporter,
	})
	if err != nil {
		return err
	}

	summary, err := op.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("run failed")
		return err
	}
	printSummary(summary)
	return nil
}

// mergeFlags lays explicitly set flags over the file/env configuration.
func mergeFlags(cmd *cobra.Command, flags *rootFlags, cfg *config.Config) {
	if cmd.Flags().Changed("input") {
		cfg.InputSnapshotPath = flags.input
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputSnapshotPath = flags.output
	}
	if cmd.Flags().Changed("history") {
		cfg.HistoryLogPath = flags.historyLog
	}
	if cmd.Flags().Changed("commit") {
		cfg.Commit = flags.commit
	}
	if cmd.Flags().Changed("services-only") {
		cfg.ServicesOnly = flags.servicesOnly
	}
	if cmd.Flags().Changed("features-only") {
		cfg.FeaturesOnly = flags.featuresOnly
	}
	if cmd.Flags().Changed("add-note") {
		cfg.AddNote = flags.addNote
	}
	if cmd.Flags().Changed("scan-docs") {
		cfg.ScanDocumentation = flags.scanDocs
	}
	if cmd.Flags().Changed("subscription") {
		cfg.SubscriptionID = flags.subscription
	}
}

func setupLogging(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	return logger
}

func printSummary(summary operation.Summary) {
	fmt.Printf("%s %d services, %d operations, %d features\n",
		color.New(color.FgGreen).Sprint("✓"),
		summary.Services, summary.Operations, summary.Features)
	fmt.Printf("  changes: %s new, %s deprecated\n",
		color.New(color.FgGreen).Sprintf("%d", summary.NewCount),
		color.New(color.FgRed).Sprintf("%d", summary.DeprecatedCount))
	for _, warning := range summary.Warnings {
		fmt.Printf("  %s %s\n", color.New(color.FgYellow).Sprint("!"), warning)
	}
	if !summary.Committed {
		fmt.Println(color.New(color.Faint).Sprint("  dry run: snapshot not committed (use --commit)"))
	}
}
