package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// RegressionStrategy fits mean temperature against humidity with ordinary
// least squares and reports the coefficient of determination.
type RegressionStrategy struct{}

func (s *RegressionStrategy) Name() string { return "regression" }

func (s *RegressionStrategy) Compute(d *cleanDataset) map[string]string {
	if d.len() < 2 {
		return map[string]string{
			"temp_humidity_r2": "N/A (fewer than 2 records)",
		}
	}

	alpha, beta := stat.LinearRegression(d.humidity, d.temps, nil, false)
	r2 := stat.RSquared(d.humidity, d.temps, nil, alpha, beta)

	// A constant humidity column gives an undefined fit.
	if isNaN(alpha) || isNaN(beta) || isNaN(r2) {
		return map[string]string{
			"temp_humidity_r2": "N/A (degenerate fit)",
		}
	}

	return map[string]string{
		"temp_humidity_r2":    fmt.Sprintf("%.4f", r2),
		"temp_humidity_slope": fmt.Sprintf("%.4f", beta),
	}
}

func isNaN(f float64) bool { return f != f }
