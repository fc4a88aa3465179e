package recommend

import "strings"

const (
	DefaultCurrencySymbol = "$"
	DefaultMarketplace    = "amazon.com"
)

var currencySymbols = map[string]string{
	"United States":  "$",
	"Canada":         "C$",
	"United Kingdom": "£",
	"Germany":        "€",
	"France":         "€",
	"Japan":          "¥",
	"Australia":      "A$",
	"Brazil":         "R$",
	"India":          "₹",
	"China":          "¥",
	"Mexico":         "$",
	"Italy":          "€",
	"Spain":          "€",
	"Netherlands":    "€",
	"Sweden":         "kr",
	"Norway":         "kr",
	"Denmark":        "kr",
	"Finland":        "€",
	"Switzerland":    "CHF",
	"Austria":        "€",
	"Belgium":        "€",
	"Portugal":       "€",
	"Ireland":        "€",
	"New Zealand":    "NZ$",
	"South Korea":    "₩",
	"Singapore":      "S$",
	"Thailand":       "฿",
	"Malaysia":       "RM",
	"Philippines":    "₱",
	"Indonesia":      "Rp",
	"Vietnam":        "₫",
	"South Africa":   "R",
	"Egypt":          "E£",
	"Nigeria":        "₦",
	"Kenya":          "KSh",
	"Morocco":        "MAD",
	"Argentina":      "$",
	"Chile":          "$",
	"Colombia":       "$",
	"Peru":           "S/",
	"Venezuela":      "Bs",
	"Ecuador":        "$",
	"Uruguay":        "$",
	"Paraguay":       "₲",
	"Bolivia":        "Bs",
	"Costa Rica":     "₡",
	"Panama":         "$",
	"Guatemala":      "Q",
	"Honduras":       "L",
	"El Salvador":    "$",
	"Nicaragua":      "C$",
}

var marketplaces = map[string]string{
	"United States":        "amazon.com",
	"Canada":               "amazon.ca",
	"Mexico":               "amazon.com.mx",
	"Brazil":               "amazon.com.br",
	"United Kingdom":       "amazon.co.uk",
	"Ireland":              "amazon.co.uk",
	"Germany":              "amazon.de",
	"Austria":              "amazon.de",
	"Switzerland":          "amazon.de",
	"France":               "amazon.fr",
	"Belgium":              "amazon.com.be",
	"Italy":                "amazon.it",
	"Spain":                "amazon.es",
	"Portugal":             "amazon.es",
	"Netherlands":          "amazon.nl",
	"Sweden":               "amazon.se",
	"Poland":               "amazon.pl",
	"Turkey":               "amazon.com.tr",
	"Japan":                "amazon.co.jp",
	"India":                "amazon.in",
	"Australia":            "amazon.com.au",
	"Singapore":            "amazon.sg",
	"Egypt":                "amazon.eg",
	"Saudi Arabia":         "amazon.sa",
	"United Arab Emirates": "amazon.ae",
	"South Africa":         "amazon.co.za",
}

// CurrencySymbol returns the display symbol for a user location.
func CurrencySymbol(location string) string {
	if s, ok := currencySymbols[strings.TrimSpace(location)]; ok {
		return s
	}
	return DefaultCurrencySymbol
}

// MarketplaceDomain returns the storefront domain serving a user location.
func MarketplaceDomain(location string) string {
	if d, ok := marketplaces[strings.TrimSpace(location)]; ok {
		return d
	}
	return DefaultMarketplace
}
