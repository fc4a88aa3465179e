package recommend

import (
	"regexp"
	"strings"

	"github.com/maltedev/shopping-recommender/internal/models"
	"github.com/maltedev/shopping-recommender/internal/parser"
)

var (
	paragraphSeparator = regexp.MustCompile(`\n[ \t]*\n`)

	// A record starts at its Product line; lead-in text above it is ignored.
	productLine = regexp.MustCompile(`(?m)^[ \t]*(?:\d+[.)][ \t]*)?Product:`)

	// One labeled line per field, in this order. Reasoning runs to the end
	// of the paragraph.
	recordPattern = regexp.MustCompile(`(?s)^(?:\d+[.)][ \t]*)?Product:[ \t]*([^\n]*)\n` +
		`URL:[ \t]*([^\n]*)\n` +
		`Price:[ \t]*([^\n]*)\n` +
		`Rating:[ \t]*([^\n]*)\n` +
		`Image URL:[ \t]*([^\n]*)\n` +
		`Reasoning:[ \t]*(.*)$`)
)

// ParseRecommendations extracts one record per well-formed paragraph of a
// ranking response. Malformed paragraphs are skipped.
func ParseRecommendations(text string) []models.RecommendationRecord {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	records := []models.RecommendationRecord{}
	for _, paragraph := range paragraphSeparator.Split(text, -1) {
		record, ok := parseParagraph(paragraph)
		if ok {
			records = append(records, record)
		}
	}
	return records
}

func parseParagraph(paragraph string) (models.RecommendationRecord, bool) {
	loc := productLine.FindStringIndex(paragraph)
	if loc == nil {
		return models.RecommendationRecord{}, false
	}

	m := recordPattern.FindStringSubmatch(strings.TrimSpace(paragraph[loc[0]:]))
	if m == nil {
		return models.RecommendationRecord{}, false
	}

	record := models.RecommendationRecord{
		Title:     strings.TrimSpace(m[1]),
		URL:       strings.TrimSpace(m[2]),
		ImageURL:  strings.TrimSpace(m[5]),
		Reasoning: strings.TrimSpace(m[6]),
	}
	if price, ok := parser.ParsePrice(m[3]); ok {
		record.Price = price
	}
	if rating, ok := parser.ParseRating(m[4]); ok {
		record.Rating = rating
	}
	return record, true
}
