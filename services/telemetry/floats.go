package telemetry

import "math"

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func absf(v float64) float64 { return math.Abs(v) }

func maxf(a, b float64) float64 { return math.Max(a, b) }

func clampPct(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 100)
}

// roundHalf rounds to the nearest integer, zero for non-finite input.
func roundHalf(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return math.Round(v)
}
