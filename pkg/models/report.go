package models

// SeriesPoint is one chartable data point: the row's date label and its
// mean temperature.
type SeriesPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Report is the structured output of one analysis run. Statistics values are
// strings so a sub-computation that cannot fit degrades to an explanatory
// placeholder instead of failing the whole report.
type Report struct {
	Status      string            `json:"status"`
	Summary     string            `json:"summary"`
	Statistics  map[string]string `json:"statistics"`
	RecordCount int               `json:"record_count"`
	Series      []SeriesPoint     `json:"series"`
}

// Failed reports whether the analysis itself concluded in failure.
func (r *Report) Failed() bool {
	return r.Status == StatusFailure
}
