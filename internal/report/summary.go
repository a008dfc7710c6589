package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/diffanalyze/internal/aggregate"
	"github.com/Sumatoshi-tech/diffanalyze/internal/symbols"
)

// WriteSummary renders the aggregate as two tables: commits grouped by how
// many functions each touched, and the extension breakdown of commits that
// touched no function at all.
func WriteSummary(out io.Writer, state *aggregate.State) {
	fmt.Fprintln(out, "Information from other changed files:")
	fmt.Fprintln(out, "How many commits changed files of each extension (no functions changed):")

	writeExtensionTable(out, state)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Information from function updates:")
	fmt.Fprintln(out, "Commits that changed N functions:")

	writeHistogramTable(out, state)

	fmt.Fprintf(out, "Commits seen: %s\n", humanize.Comma(int64(state.CommitsSeen())))
}

func writeExtensionTable(out io.Writer, state *aggregate.State) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"Extension", "Commits"})

	histogram := state.ExtensionHistogram()

	for _, ext := range state.Extensions() {
		label := ext
		if ext == symbols.NoExtension {
			label = "(no extension: README, NEWS, ...)"
		}

		tw.AppendRow(table.Row{label, histogram[ext]})
	}

	tw.Render()
}

func writeHistogramTable(out io.Writer, state *aggregate.State) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"Functions changed", "Commits"})

	histogram := state.Histogram()

	for _, count := range state.HistogramKeys() {
		tw.AppendRow(table.Row{count, histogram[count]})
	}

	tw.Render()
}
