// Package normalizer turns raw client address fields into the canonical cache
// key and the ordered ladder of search strings used by the resolver.
package normalizer

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/pmgagenda/geocoder/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Country suffix appended to every search variation.
const Country = "Brasil"

// minVariationLen discards variations too unspecific to geocode.
const minVariationLen = 10

// ErrMissingCity is returned when an address has no city; there is no valid
// cache key without one.
var ErrMissingCity = errors.New("address has no city")

var (
	punctRe   = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	spaceRe   = regexp.MustCompile(`\s+`)
	cepExact  = regexp.MustCompile(`^\d{8}$`)
	cepInText = regexp.MustCompile(`\b(\d{2})\.?(\d{3})-?(\d{3})\b`)
	// RE2 has no backreferences, so the same-digit-repeated-8-times check
	// (`^(\d)\1{7}$`) is spelled out as an alternation.
	sameDigit = regexp.MustCompile(`^(0{8}|1{8}|2{8}|3{8}|4{8}|5{8}|6{8}|7{8}|8{8}|9{8})$`)
)

// stripAccents removes combining marks after NFD decomposition, then
// recomposes. "São José" and "Sao Jose" normalize to the same text.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Key derives the canonical cache key for an address: visible fields joined,
// lower-cased, accents and punctuation stripped, whitespace collapsed. Two
// addresses with the same visible text always produce the same key.
func Key(addr models.ClientAddress) (string, error) {
	if strings.TrimSpace(addr.City) == "" {
		return "", ErrMissingCity
	}

	joined := strings.Join([]string{
		addr.Street, addr.Number, addr.Neighborhood, addr.City, addr.Region, addr.PostalCode,
	}, " ")

	return canonical(joined), nil
}

// canonical applies the key normalization rules to any text.
func canonical(text string) string {
	text = strings.ToLower(text)
	if stripped, _, err := transform.String(stripAccents, text); err == nil {
		text = stripped
	}
	text = punctRe.ReplaceAllString(text, " ")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Variations builds the ordered list of search strings for an address, most
// specific first. Variations shorter than 10 characters are discarded and
// duplicates keep their first position.
func Variations(addr models.ClientAddress) []string {
	street := strings.TrimSpace(addr.Street)
	number := strings.TrimSpace(addr.Number)
	hood := strings.TrimSpace(addr.Neighborhood)
	city := strings.TrimSpace(addr.City)
	region := strings.TrimSpace(addr.Region)
	cep := ExtractCEP(addr)

	streetNumber := street
	if street != "" && number != "" {
		streetNumber = street + ", " + number
	}

	candidates := [][]string{
		{streetNumber, hood, city, region, Country},
		{street, hood, city, region, Country},
		{street, city, region, Country},
		{hood, city, region, Country},
		{city, region, Country},
		{cep, Country},
	}

	seen := make(map[string]bool)
	variations := []string{}
	for _, parts := range candidates {
		v := joinParts(parts)
		if len(v) < minVariationLen || seen[v] {
			continue
		}
		seen[v] = true
		variations = append(variations, v)
	}

	return variations
}

// joinParts joins non-empty address components with commas.
func joinParts(parts []string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	// A variation is only the country when every other component is empty.
	if len(kept) <= 1 {
		return ""
	}
	return strings.Join(kept, ", ")
}

// ExtractCEP returns the 8-digit postal code of an address, or "" when none
// is usable. The structured field wins; otherwise the free-text address is
// scanned for the 12345-678, 12.345-678 and 12345678 forms.
func ExtractCEP(addr models.ClientAddress) string {
	if cep := cleanCEP(addr.PostalCode); cep != "" {
		return cep
	}

	for _, match := range cepInText.FindAllStringSubmatch(addr.FullAddress, -1) {
		if cep := cleanCEP(match[1] + match[2] + match[3]); cep != "" {
			return cep
		}
	}

	return ""
}

// cleanCEP strips punctuation from a candidate CEP and validates it.
func cleanCEP(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	if !cepExact.MatchString(digits) {
		return ""
	}
	// A CEP made of one repeated digit is a placeholder, not an address.
	if sameDigit.MatchString(digits) {
		return ""
	}
	return digits
}
