package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/maltedev/shopping-recommender/internal/models"
)

var (
	minorUnitPattern = regexp.MustCompile(`^[^\d]*?(\d+)\s*(?:pence|cents|cent|ct|p|c|¢)\.?$`)
	numberPattern    = regexp.MustCompile(`\d(?:[\d.,' \x{00a0}]*\d)?`)
	ratingPattern    = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

// ParsePrice normalizes a displayed price ("£1,299.99", "12,99 €", "99p", "$45")
// to a decimal value.
func ParsePrice(text string) (float64, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return 0, false
	}

	if m := minorUnitPattern.FindStringSubmatch(t); m != nil {
		minor, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		return minor / 100, true
	}

	raw := numberPattern.FindString(t)
	if raw == "" {
		return 0, false
	}
	raw = strings.NewReplacer(" ", "", "\u00a0", "", "'", "").Replace(raw)

	value, err := strconv.ParseFloat(normalizeSeparators(raw), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// normalizeSeparators rewrites a digit run so that only a single '.' marks
// the decimal point.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	case lastComma >= 0:
		if decimals := len(s) - lastComma - 1; strings.Count(s, ",") == 1 && decimals >= 1 && decimals <= 2 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
		if len(s)-lastDot-1 == 3 && lastDot <= 3 {
			return strings.Replace(s, ".", "", 1)
		}
		return s
	}

	return s
}

// FormatPrice renders value with thousands separators and two decimals.
func FormatPrice(value float64, symbol string) string {
	s := strconv.FormatFloat(math.Abs(value), 'f', 2, 64)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	sign := ""
	if value < 0 {
		sign = "-"
	}
	return sign + symbol + b.String() + "." + frac
}

// ParseRating reads the first number of a rating text such as
// "4.5 out of 5 stars" or "4,5 von 5 Sternen" and clamps it to [0,5].
func ParseRating(text string) (float64, bool) {
	raw := ratingPattern.FindString(text)
	if raw == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return models.ClampRating(value), true
}
