// Package metric measures latents and exports session metrics.
//
// The distance helpers quantify how far a population drifted between steps.
// PrometheusCollector implements evolatent.MetricsCollector on top of a
// Prometheus registry.
package metric

import (
	"errors"

	"github.com/hupe1980/evolatent/internal/math32"
	"github.com/hupe1980/evolatent/latent"
)

// ErrSizeMismatch is returned when two vectors differ in length.
var ErrSizeMismatch = errors.New("metric: vector sizes do not match")

// Magnitude calculates the magnitude (length) of a float32 slice.
func Magnitude(v []float32) float64 {
	return math32.Norm(v)
}

// CosineSimilarity calculates the cosine similarity between two float32 slices.
func CosineSimilarity(v1, v2 []float32) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrSizeMismatch
	}

	dotProduct := math32.Dot(v1, v2)
	magnitudeA := Magnitude(v1)
	magnitudeB := Magnitude(v2)

	// Avoid division by zero
	if magnitudeA == 0 || magnitudeB == 0 {
		return 0, nil
	}

	return dotProduct / (magnitudeA * magnitudeB), nil
}

// SquaredL2 calculates the squared L2 distance between two float32 slices.
func SquaredL2(v1, v2 []float32) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrSizeMismatch
	}

	return math32.SquaredL2(v1, v2), nil
}

// Drift describes one candidate of a step relative to the previous step.
type Drift struct {
	// Norm is the candidate's Euclidean norm.
	Norm float64
	// Nearest is the index of the most similar candidate of the previous step.
	Nearest int
	// Cosine is the cosine similarity to Nearest.
	Cosine float64
}

// PopulationDrift compares every candidate of cur with the candidates of prev.
func PopulationDrift(prev, cur latent.Population) ([]Drift, error) {
	out := make([]Drift, len(cur))
	for i, v := range cur {
		d := Drift{Norm: v.Norm(), Nearest: -1}
		for j, p := range prev {
			c, err := CosineSimilarity(p.Data, v.Data)
			if err != nil {
				return nil, err
			}
			if d.Nearest < 0 || c > d.Cosine {
				d.Nearest, d.Cosine = j, c
			}
		}
		out[i] = d
	}
	return out, nil
}
