package analysis

import (
	"strconv"
	"strings"
	"time"

	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/dataset"
)

// RequiredColumns are the columns every analysis needs, in reporting order.
var RequiredColumns = []string{"date", "mean_temp_C", "wind_speed", "humidity"}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
}

// cleanDataset holds the rows that survived validation, as typed parallel
// columns sorted in input order.
type cleanDataset struct {
	dates    []time.Time
	temps    []float64
	winds    []float64
	humidity []float64
}

func (d *cleanDataset) len() int { return len(d.dates) }

// clean drops rows with a missing or non-coercible value in any required
// column. The caller has already verified the columns exist.
func clean(t *dataset.Table) *cleanDataset {
	dateIdx := t.ColumnIndex("date")
	tempIdx := t.ColumnIndex("mean_temp_C")
	windIdx := t.ColumnIndex("wind_speed")
	humIdx := t.ColumnIndex("humidity")

	maxIdx := dateIdx
	for _, i := range []int{tempIdx, windIdx, humIdx} {
		if i > maxIdx {
			maxIdx = i
		}
	}

	out := &cleanDataset{}
	for _, row := range t.Rows {
		if len(row) <= maxIdx {
			continue
		}

		date, ok := parseDate(row[dateIdx])
		if !ok {
			continue
		}
		temp, ok := parseFloat(row[tempIdx])
		if !ok {
			continue
		}
		wind, ok := parseFloat(row[windIdx])
		if !ok {
			continue
		}
		hum, ok := parseFloat(row[humIdx])
		if !ok {
			continue
		}

		out.dates = append(out.dates, date)
		out.temps = append(out.temps, temp)
		out.winds = append(out.winds, wind)
		out.humidity = append(out.humidity, hum)
	}
	return out
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
