package services

import "math"

// QualityScore returns 100 * (1 - rejected/seen), rounded to two decimals and
// clamped to [0, 100]. An empty batch scores 100.
func QualityScore(seen, rejected int) float64 {
	if seen <= 0 {
		return 100
	}
	if rejected < 0 {
		rejected = 0
	}
	score := 100 * (1 - float64(rejected)/float64(seen))
	return round2(math.Max(0, math.Min(100, score)))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
