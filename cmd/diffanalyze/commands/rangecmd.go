package commands

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/diffanalyze/internal/aggregate"
	"github.com/Sumatoshi-tech/diffanalyze/internal/attribution"
	"github.com/Sumatoshi-tech/diffanalyze/internal/history"
	"github.com/Sumatoshi-tech/diffanalyze/internal/report"
)

// RangeCommand holds the configuration for the range command.
type RangeCommand struct {
	configPath string
	revision   string
	until      string
	printMode  string
	pathFilter string
	withHash   bool
	onlyAdded  bool
	workers    int
}

// NewRangeCommand creates and configures the range command.
func NewRangeCommand() *cobra.Command {
	rc := &RangeCommand{}

	cobraCmd := &cobra.Command{
		Use:   "range [repository]",
		Short: "Print per-commit function changes for a revision range",
		Long: `Attribute changed lines to functions for every commit between
--revision and --until and print the results. Without --until only the
single commit at --revision is analyzed.`,
		Args: cobra.ExactArgs(1),
		RunE: rc.run,
	}

	cobraCmd.Flags().StringVar(&rc.configPath, "config", "", "config file (default: .diffanalyze.yaml)")
	cobraCmd.Flags().StringVarP(&rc.revision, "revision", "r", "HEAD", "newest revision of the range")
	cobraCmd.Flags().StringVarP(&rc.until, "until", "u", "", "oldest revision, exclusive (default: the revision's parent)")
	cobraCmd.Flags().StringVarP(&rc.printMode, "print-mode", "m", "full", "output format (full, simple, only-fn, functions)")
	cobraCmd.Flags().StringVar(&rc.pathFilter, "path-filter", "", "restrict analysis to paths matching this regexp")
	cobraCmd.Flags().BoolVar(&rc.withHash, "with-hash", false, "append the commit hash to functions rows")
	cobraCmd.Flags().BoolVarP(&rc.onlyAdded, "only-added", "a", false, "report added lines only")
	cobraCmd.Flags().IntVar(&rc.workers, "workers", 0, "concurrent extractor processes per commit (0 = config default)")

	return cobraCmd
}

func (rc *RangeCommand) run(cmd *cobra.Command, args []string) error {
	mode, err := report.ParsePrintMode(rc.printMode)
	if err != nil {
		return err
	}

	setup, err := newAnalysisSetup(cmd, args[0], rc.configPath, rc.pathFilter)
	if err != nil {
		return err
	}
	defer setup.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	resolver := history.NewResolver(setup.repo)

	var pairs []history.CommitPair

	if rc.until == "" {
		pairs, err = resolver.LastN(ctx, rc.revision, 1)
	} else {
		pairs, err = resolver.Range(ctx, rc.revision, rc.until)
	}

	if err != nil {
		return err
	}

	workers := rc.workers
	if workers <= 0 {
		workers = setup.cfg.Analysis.Workers
	}

	printer := report.NewPrinter(os.Stdout, mode, rc.onlyAdded, rc.withHash)

	runner := &history.Runner{
		Source:     setup.repo,
		Extractor:  setup.extractor,
		Gate:       setup.gate,
		Engine:     attribution.NewEngine(setup.logger),
		State:      aggregate.NewState(false),
		PathFilter: setup.pathFilter,
		Workers:    workers,
		Logger:     setup.logger,
		OnCommit: func(result *attribution.Result) {
			commit, lookupErr := setup.repo.LookupCommit(ctx, result.CommitID)
			if lookupErr == nil {
				printer.PrintHeader(result.CommitID, commit.Author(), commit.Message())
				commit.Free()
			}

			printer.PrintResult(result)
		},
	}

	return runner.Run(ctx, pairs)
}
