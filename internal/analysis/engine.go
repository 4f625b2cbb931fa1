// Package analysis computes summary statistics over parsed weather datasets.
// Analyze is a pure function: expected input problems (missing columns, rows
// that clean away to nothing) come back as FAILURE reports, never as errors.
package analysis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"gonum.org/v1/gonum/stat"

	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/dataset"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/pkg/models"
)

const (
	summaryMaxLen = 1000

	// Downsampling bound for the chartable series: above the threshold only
	// every strideth row is kept, so the same dataset always yields the same
	// series.
	chartThreshold = 1000
	chartStride    = 3
)

// Strategy computes one family of statistics over a cleaned dataset. A
// strategy that cannot fit returns placeholder strings, never an error: a
// partial report beats no report.
type Strategy interface {
	Name() string
	Compute(d *cleanDataset) map[string]string
}

// Engine runs the configured strategies over uploaded datasets.
type Engine struct {
	strategies []Strategy
}

// NewEngine builds an Engine from strategy names ("regression",
// "clustering"). Unknown names are a configuration error.
func NewEngine(names []string, clusterCount int) (*Engine, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("at least one analysis strategy is required")
	}

	var strategies []Strategy
	for _, name := range names {
		switch strings.TrimSpace(name) {
		case "regression":
			strategies = append(strategies, &RegressionStrategy{})
		case "clustering":
			strategies = append(strategies, &ClusteringStrategy{K: clusterCount})
		default:
			return nil, fmt.Errorf("unknown analysis strategy %q", name)
		}
	}
	return &Engine{strategies: strategies}, nil
}

// Analyze validates, cleans, and summarizes a parsed table. The returned
// report is always non-nil.
func (e *Engine) Analyze(t *dataset.Table) *models.Report {
	missing := t.MissingColumns(RequiredColumns)
	if len(missing) > 0 {
		return failureReport(fmt.Sprintf(
			"Missing required columns: %s.", strings.Join(missing, ", ")))
	}

	d := clean(t)
	if d.len() == 0 {
		return failureReport("The dataset was empty after cleaning. No analysis performed.")
	}

	stats := make(map[string]string)
	for _, s := range e.strategies {
		for k, v := range s.Compute(d) {
			stats[k] = v
		}
	}

	return &models.Report{
		Status:      models.StatusSuccess,
		Summary:     summarize(d),
		Statistics:  stats,
		RecordCount: d.len(),
		Series:      series(d),
	}
}

func failureReport(msg string) *models.Report {
	return &models.Report{
		Status:      models.StatusFailure,
		Summary:     truncate("FAILURE: "+msg, summaryMaxLen),
		Statistics:  map[string]string{},
		RecordCount: 0,
		Series:      []models.SeriesPoint{},
	}
}

// summarize produces the human-readable report line: record count, covered
// date range, and overall average temperature.
func summarize(d *cleanDataset) string {
	minDate, maxDate := d.dates[0], d.dates[0]
	for _, dt := range d.dates[1:] {
		if dt.Before(minDate) {
			minDate = dt
		}
		if dt.After(maxDate) {
			maxDate = dt
		}
	}

	avgTemp := stat.Mean(d.temps, nil)
	text := fmt.Sprintf(
		"This report covers %d records from %s to %s. The overall average temperature is %.2f°C.",
		d.len(), minDate.Format("2006-01-02"), maxDate.Format("2006-01-02"), avgTemp)
	return truncate(text, summaryMaxLen)
}

// series extracts the chartable date/temperature points, stride-downsampled
// for large datasets.
func series(d *cleanDataset) []models.SeriesPoint {
	stride := 1
	if d.len() > chartThreshold {
		stride = chartStride
	}

	points := make([]models.SeriesPoint, 0, d.len()/stride+1)
	for i := 0; i < d.len(); i += stride {
		points = append(points, models.SeriesPoint{
			Label: d.dates[i].Format("2006-01-02"),
			Value: d.temps[i],
		})
	}
	return points
}

// truncate limits s to max bytes without splitting UTF-8 runes.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
