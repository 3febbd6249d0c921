package services

import (
	"testing"

	"retail-pipeline/models"
)

func TestQualityScore(t *testing.T) {
	tests := []struct {
		seen, rejected int
		want           float64
	}{
		{0, 0, 100},
		{1, 0, 100},
		{2, 1, 50},
		{3, 1, 66.67},
		{3, 3, 0},
		{7, 2, 71.43},
	}

	for _, tt := range tests {
		got := QualityScore(tt.seen, tt.rejected)
		if got != tt.want {
			t.Errorf("QualityScore(%d, %d) = %.2f; want %.2f", tt.seen, tt.rejected, got, tt.want)
		}
	}
}

func TestQualityScoreMonotonic(t *testing.T) {
	const seen = 37
	prev := QualityScore(seen, 0)
	for rejected := 1; rejected <= seen; rejected++ {
		got := QualityScore(seen, rejected)
		if got > prev {
			t.Fatalf("score rose from %.2f to %.2f at %d rejected", prev, got, rejected)
		}
		prev = got
	}
}

func TestClassifySegment(t *testing.T) {
	tests := []struct {
		spent float64
		want  models.Segment
	}{
		{10000, models.SegmentVIP},
		{25000.5, models.SegmentVIP},
		{9999.99, models.SegmentHigh},
		{5000, models.SegmentHigh},
		{4999.99, models.SegmentMedium},
		{1000, models.SegmentMedium},
		{999.99, models.SegmentLow},
		{0, models.SegmentLow},
		{-20, models.SegmentLow},
	}

	for _, tt := range tests {
		if got := ClassifySegment(tt.spent); got != tt.want {
			t.Errorf("ClassifySegment(%.2f) = %q; want %q", tt.spent, got, tt.want)
		}
	}
}
