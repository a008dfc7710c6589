package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/diffanalyze/internal/aggregate"
	"github.com/Sumatoshi-tech/diffanalyze/internal/attribution"
	"github.com/Sumatoshi-tech/diffanalyze/internal/history"
	"github.com/Sumatoshi-tech/diffanalyze/internal/report"
)

// ErrUnknownFormat is returned for an unrecognized report format.
var ErrUnknownFormat = errors.New("unknown format")

// HistoryCommand holds the configuration for the history command.
type HistoryCommand struct {
	configPath  string
	rangeEnd    string
	rangeCount  int
	pathFilter  string
	format      string
	summary     bool
	plot        bool
	plotFile    string
	plotLimit   int
	saveJSON    bool
	jsonFile    string
	track       string
	compress    bool
	skipInitial bool
	workers     int
}

// NewHistoryCommand creates and configures the history command.
func NewHistoryCommand() *cobra.Command {
	hc := &HistoryCommand{}

	cobraCmd := &cobra.Command{
		Use:   "history [repository]",
		Short: "Analyze a commit range and aggregate per-function change statistics",
		Long: `Walk the repository history, attribute every changed line to the
function containing it, and aggregate how many functions each commit
touched. Remote URLs are cloned; local paths are opened in place.`,
		Args: cobra.ExactArgs(1),
		RunE: hc.run,
	}

	cobraCmd.Flags().StringVar(&hc.configPath, "config", "", "config file (default: .diffanalyze.yaml)")
	cobraCmd.Flags().StringVar(&hc.rangeEnd, "range", "", "analyze commits between HEAD and this revision (exclusive)")
	cobraCmd.Flags().IntVar(&hc.rangeCount, "range-count", 0, "analyze only the last N commits")
	cobraCmd.Flags().StringVar(&hc.pathFilter, "path-filter", "", "restrict analysis to paths matching this regexp")
	cobraCmd.Flags().StringVarP(&hc.format, "format", "f", "yaml", "report format (yaml, json)")
	cobraCmd.Flags().BoolVarP(&hc.summary, "summary", "s", false, "print a text summary instead of the report")
	cobraCmd.Flags().BoolVarP(&hc.plot, "plot", "p", false, "write histogram charts as HTML")
	cobraCmd.Flags().StringVar(&hc.plotFile, "plot-file", "function_commits.html", "plot output path")
	cobraCmd.Flags().IntVarP(&hc.plotLimit, "limit", "l", 0, "restrict the second histogram chart to counts up to this value")
	cobraCmd.Flags().BoolVar(&hc.saveJSON, "save-json", false, "write the per-commit change index as JSON")
	cobraCmd.Flags().StringVar(&hc.jsonFile, "json-file", "output.json", "change index output path")
	cobraCmd.Flags().StringVar(&hc.track, "track", "diff", "what the change index records (loc, diff)")
	cobraCmd.Flags().BoolVar(&hc.compress, "compress", false, "LZ4-compress the change index")
	cobraCmd.Flags().BoolVarP(&hc.skipInitial, "skip-initial", "i", false, "exclude the root commit from the histogram")
	cobraCmd.Flags().IntVar(&hc.workers, "workers", 0, "concurrent extractor processes per commit (0 = config default)")

	return cobraCmd
}

func (hc *HistoryCommand) run(cmd *cobra.Command, args []string) error {
	track, err := report.ParseTrackMode(hc.track)
	if err != nil {
		return err
	}

	setup, err := newAnalysisSetup(cmd, args[0], hc.configPath, hc.pathFilter)
	if err != nil {
		return err
	}
	defer setup.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	resolver := history.NewResolver(setup.repo)

	var pairs []history.CommitPair

	switch {
	case hc.rangeEnd != "":
		pairs, err = resolver.Range(ctx, "HEAD", hc.rangeEnd)
	case hc.rangeCount > 0:
		pairs, err = resolver.LastN(ctx, "HEAD", hc.rangeCount)
	default:
		pairs, err = resolver.FullHistory(ctx)
	}

	if err != nil {
		return err
	}

	workers := hc.workers
	if workers <= 0 {
		workers = setup.cfg.Analysis.Workers
	}

	state := aggregate.NewState(hc.saveJSON)
	runner := &history.Runner{
		Source:      setup.repo,
		Extractor:   setup.extractor,
		Gate:        setup.gate,
		Engine:      attribution.NewEngine(setup.logger),
		State:       state,
		PathFilter:  setup.pathFilter,
		Workers:     workers,
		SkipInitial: hc.skipInitial,
		Logger:      setup.logger,
	}

	start := time.Now()

	err = runner.Run(ctx, pairs)
	if err != nil {
		return err
	}

	setup.logger.Info("analysis complete",
		"commits", humanize.Comma(int64(len(pairs))),
		"elapsed", time.Since(start).Round(time.Millisecond))

	return hc.writeOutputs(state, track)
}

// writeOutputs emits the requested report artifacts.
func (hc *HistoryCommand) writeOutputs(state *aggregate.State, track report.TrackMode) error {
	if hc.saveJSON {
		err := report.WriteJSONIndex(state, hc.jsonFile, track, hc.compress)
		if err != nil {
			return err
		}
	}

	if hc.plot {
		err := report.WritePlots(state, hc.plotFile, hc.plotLimit)
		if err != nil {
			return err
		}
	}

	if hc.summary {
		report.WriteSummary(os.Stdout, state)

		return nil
	}

	switch hc.format {
	case "yaml":
		return report.WriteYAML(os.Stdout, state)
	case "json":
		return report.WriteJSON(os.Stdout, state)
	default:
		return fmt.Errorf("%w: %q (expected yaml or json)", ErrUnknownFormat, hc.format)
	}
}
