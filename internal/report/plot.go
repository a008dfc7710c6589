package report

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/diffanalyze/internal/aggregate"
)

// defaultPlotLimit caps the x axis of the restricted histogram chart.
const defaultPlotLimit = 25

// WritePlots renders the aggregate histograms as an HTML page with three bar
// charts: commits per functions-changed count, the same restricted to small
// counts, and commits per extension with no function changed.
func WritePlots(state *aggregate.State, path string, limit int) error {
	if limit <= 0 {
		limit = defaultPlotLimit
	}

	page := components.NewPage()
	page.PageTitle = "diffanalyze"

	page.AddCharts(
		histogramChart(state, "Functions changed per commit", 0),
		histogramChart(state, fmt.Sprintf("Functions changed per commit (1..%d)", limit), limit),
		extensionChart(state),
	)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}

	err = page.Render(file)

	closeErr := file.Close()

	if err != nil {
		return fmt.Errorf("render plots: %w", err)
	}

	if closeErr != nil {
		return fmt.Errorf("close plot file: %w", closeErr)
	}

	return nil
}

// histogramChart builds the commits-per-functions-changed bar chart. A
// positive limit restricts the x axis to counts in [1, limit].
func histogramChart(state *aggregate.State, title string, limit int) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Functions changed"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Commits"}),
	)

	histogram := state.Histogram()

	var (
		labels []string
		values []opts.BarData
	)

	for _, count := range state.HistogramKeys() {
		if limit > 0 && (count < 1 || count > limit) {
			continue
		}

		labels = append(labels, strconv.Itoa(count))
		values = append(values, opts.BarData{Value: histogram[count]})
	}

	bar.SetXAxis(labels)
	bar.AddSeries("Commits", values)

	return bar
}

// extensionChart builds the no-function-change-by-extension bar chart.
func extensionChart(state *aggregate.State) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Commits with no function changed, by extension"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Extension"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Commits"}),
	)

	histogram := state.ExtensionHistogram()

	var (
		labels []string
		values []opts.BarData
	)

	for _, ext := range state.Extensions() {
		labels = append(labels, ext)
		values = append(values, opts.BarData{Value: histogram[ext]})
	}

	bar.SetXAxis(labels)
	bar.AddSeries("Commits", values)

	return bar
}
