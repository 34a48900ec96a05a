package utils

import (
	"math"
)

// ClampPixelRatio limits a device pixel ratio to (0, max]; non positive ratios become 1.
func ClampPixelRatio(dpr, max float64) float64 {
	if dpr <= 0 || math.IsNaN(dpr) {
		dpr = 1
	}
	if max > 0 && dpr > max {
		return max
	}
	return dpr
}
