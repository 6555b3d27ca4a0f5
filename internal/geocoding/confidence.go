package geocoding

// Confidence converts the heterogeneous match signals of a primary-geocoder
// result into the single 0-1 ordinal used for cache admission and tiering.
// The score is additive and clamped at 1.0:
//
//	base 0.5
//	+ match-type bonus (house 0.4, street 0.3, neighbourhood 0.2, city 0.1)
//	+ importance * 0.3
//	+ completeness of the matched address components
func Confidence(m *Match) float64 {
	score := 0.5

	switch m.Type {
	case "house", "building":
		score += 0.4
	case "street", "road", "residential":
		score += 0.3
	case "neighbourhood", "suburb":
		score += 0.2
	case "city", "town", "village":
		score += 0.1
	}

	score += m.Importance * 0.3

	if m.Address.HouseNumber != "" {
		score += 0.15
	}
	if m.Address.Road != "" {
		score += 0.10
	}
	if m.Address.Suburb != "" || m.Address.Neighbourhood != "" {
		score += 0.05
	}
	if m.Address.City != "" || m.Address.Town != "" {
		score += 0.05
	}

	if score > 1.0 {
		return 1.0
	}
	return score
}
