package genai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/maltedev/shopping-recommender/internal/models"
)

const maxCategories = 7

var listMarker = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s*`)

// Categories asks the model for marketplace search categories matching the
// shopping request.
func (c *Client) Categories(ctx context.Context, userInput string, profile *models.UserProfile) ([]string, error) {
	text, err := c.Generate(ctx, CategoryPrompt(userInput, profile))
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	categories := ParseCategories(text)
	if len(categories) == 0 {
		return nil, ErrEmptyResponse
	}
	c.logger.Info("categories generated", "categories", categories)
	return categories, nil
}

// Rank asks the model to order the scraped products for the user. The
// returned text uses the labeled paragraph format described in RankPrompt.
func (c *Client) Rank(ctx context.Context, userInput string, profile *models.UserProfile, products []models.ProductRecord) (string, error) {
	text, err := c.Generate(ctx, RankPrompt(userInput, profile, products))
	if err != nil {
		return "", fmt.Errorf("failed to rank products: %w", err)
	}
	return text, nil
}

func CategoryPrompt(userInput string, profile *models.UserProfile) string {
	var b strings.Builder
	b.WriteString("You are a shopping assistant choosing what to search for on an online marketplace.\n\n")
	b.WriteString("Shopper request:\n")
	b.WriteString(strings.TrimSpace(userInput))
	b.WriteString("\n\n")
	writeProfile(&b, profile)
	fmt.Fprintf(&b, "\nSuggest up to %d short product search phrases that would find good products for this shopper", maxCategories)
	b.WriteString(" in their country and budget. Reply with one phrase per line and nothing else: no numbering, no explanations.\n")
	return b.String()
}

func RankPrompt(userInput string, profile *models.UserProfile, products []models.ProductRecord) string {
	var b strings.Builder
	b.WriteString("You are a shopping assistant ranking real marketplace products for a shopper.\n\n")
	b.WriteString("Shopper request:\n")
	b.WriteString(strings.TrimSpace(userInput))
	b.WriteString("\n\n")
	writeProfile(&b, profile)

	b.WriteString("\nCandidate products:\n")
	if len(products) == 0 {
		b.WriteString("(none found, suggest well known products instead)\n")
	}
	for i, p := range products {
		fmt.Fprintf(&b, "%d. Title: %s\n", i+1, p.Title)
		fmt.Fprintf(&b, "   URL: %s\n", p.URL)
		if p.PriceText != "" {
			fmt.Fprintf(&b, "   Price: %s\n", p.PriceText)
		} else {
			b.WriteString("   Price: unknown\n")
		}
		if p.Rating != nil {
			fmt.Fprintf(&b, "   Rating: %.1f\n", *p.Rating)
		}
		if p.ImageURL != "" {
			fmt.Fprintf(&b, "   Image URL: %s\n", p.ImageURL)
		}
	}

	b.WriteString(`
Pick the best products for this shopper, best first. Keep titles and URLs exactly as given.
Describe each pick in exactly this format, with one blank line between products:

Product: <title>
URL: <url>
Price: <price as a number>
Rating: <rating from 0 to 5>
Image URL: <image url>
Reasoning: <one or two sentences on why it suits the shopper>
`)
	return b.String()
}

func writeProfile(b *strings.Builder, profile *models.UserProfile) {
	if profile == nil {
		return
	}
	b.WriteString("Shopper profile:\n")
	fmt.Fprintf(b, "- Age: %s\n", profile.Age)
	fmt.Fprintf(b, "- Gender: %s\n", profile.Gender)
	fmt.Fprintf(b, "- Location: %s\n", profile.Location)
	fmt.Fprintf(b, "- Budget range: %s\n", profile.BudgetRange)
	fmt.Fprintf(b, "- Favorite categories: %s\n", strings.Join(profile.FavoriteCategories, ", "))
	fmt.Fprintf(b, "- Interests: %s\n", profile.Interests)
}

// ParseCategories reads one category per line, dropping list markers,
// emphasis and heading lines.
func ParseCategories(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = listMarker.ReplaceAllString(line, "")
		line = strings.Trim(line, "*_\"'` ")
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		out = append(out, line)
	}
	return out
}
