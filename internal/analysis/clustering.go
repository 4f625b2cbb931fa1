package analysis

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	defaultClusterCount = 3
	maxKMeansIterations = 100
)

// ClusteringStrategy groups days by standardized (temperature, wind speed)
// with k-means and reports the de-standardized cluster centers. Seeding is by
// evenly spaced rows, so the same dataset always produces the same clusters.
type ClusteringStrategy struct {
	K int
}

func (s *ClusteringStrategy) Name() string { return "clustering" }

func (s *ClusteringStrategy) Compute(d *cleanDataset) map[string]string {
	k := s.K
	if k <= 0 {
		k = defaultClusterCount
	}
	if d.len() < k {
		return map[string]string{
			"cluster_centers": fmt.Sprintf("N/A (fewer than %d records)", k),
		}
	}

	tempMean, tempStd := stat.MeanStdDev(d.temps, nil)
	windMean, windStd := stat.MeanStdDev(d.winds, nil)
	if tempStd == 0 || windStd == 0 || math.IsNaN(tempStd) || math.IsNaN(windStd) {
		return map[string]string{
			"cluster_centers": "N/A (constant feature)",
		}
	}

	points := make([][2]float64, d.len())
	for i := range points {
		points[i] = [2]float64{
			(d.temps[i] - tempMean) / tempStd,
			(d.winds[i] - windMean) / windStd,
		}
	}

	centers := kmeans(points, k)

	descs := make([]string, len(centers))
	for i, c := range centers {
		descs[i] = fmt.Sprintf("(temp=%.2f°C, wind=%.2f)",
			c[0]*tempStd+tempMean, c[1]*windStd+windMean)
	}

	return map[string]string{
		"cluster_count":   fmt.Sprintf("%d", k),
		"cluster_centers": strings.Join(descs, "; "),
	}
}

// kmeans runs Lloyd's algorithm with deterministic evenly spaced seeding.
// len(points) must be >= k.
func kmeans(points [][2]float64, k int) [][2]float64 {
	centers := make([][2]float64, k)
	for i := range centers {
		centers[i] = points[i*len(points)/k]
	}

	assignments := make([]int, len(points))
	for iter := 0; iter < maxKMeansIterations; iter++ {
		changed := false
		for i, p := range points {
			best := nearestCenter(p, centers)
			if best != assignments[i] {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids; an emptied cluster keeps its previous center.
		sums := make([][2]float64, k)
		counts := make([]int, k)
		for i, p := range points {
			c := assignments[i]
			sums[c][0] += p[0]
			sums[c][1] += p[1]
			counts[c]++
		}
		for c := range centers {
			if counts[c] > 0 {
				centers[c][0] = sums[c][0] / float64(counts[c])
				centers[c][1] = sums[c][1] / float64(counts[c])
			}
		}
	}
	return centers
}

func nearestCenter(p [2]float64, centers [][2]float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range centers {
		dist := floats.Distance(p[:], c[:], 2)
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}
