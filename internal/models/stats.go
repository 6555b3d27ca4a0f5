package models

// Confidence tier thresholds used for batch reporting.
const (
	HighConfidence   = 0.8
	MediumConfidence = 0.6
)

// PrecisionStats aggregates the outcome of one batch run. A fresh value is
// created per run and discarded at the next one.
type PrecisionStats struct {
	Total      int // Clients attempted.
	Resolved   int // Clients with a coordinate placed.
	Skipped    int // Clients rejected before any lookup (no usable address).
	Unresolved int // Clients whose fallbacks were all exhausted.
	High       int // Resolved with confidence >= HighConfidence.
	Medium     int // Resolved with confidence in [MediumConfidence, HighConfidence).
	Low        int // Resolved with confidence < MediumConfidence.
}

// RecordResolved counts one resolved client into its confidence tier.
func (s *PrecisionStats) RecordResolved(confidence float64) {
	s.Resolved++
	switch {
	case confidence >= HighConfidence:
		s.High++
	case confidence >= MediumConfidence:
		s.Medium++
	default:
		s.Low++
	}
}

// Tier names the confidence tier a score falls into.
func Tier(confidence float64) string {
	switch {
	case confidence >= HighConfidence:
		return "high"
	case confidence >= MediumConfidence:
		return "medium"
	default:
		return "low"
	}
}

// HighPercent returns the share of attempted clients resolved at high
// confidence, rounded down.
func (s *PrecisionStats) HighPercent() int {
	if s.Total == 0 {
		return 0
	}
	return s.High * 100 / s.Total
}
