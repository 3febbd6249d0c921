package services

import "retail-pipeline/models"

// Inclusive lower bounds of each spend tier.
const (
	vipThreshold    = 10000
	highThreshold   = 5000
	mediumThreshold = 1000
)

// ClassifySegment maps a customer's lifetime spend to a tier.
func ClassifySegment(totalSpent float64) models.Segment {
	switch {
	case totalSpent >= vipThreshold:
		return models.SegmentVIP
	case totalSpent >= highThreshold:
		return models.SegmentHigh
	case totalSpent >= mediumThreshold:
		return models.SegmentMedium
	default:
		return models.SegmentLow
	}
}
