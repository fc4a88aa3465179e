package fetch

import (
	"errors"
	"strings"
)

var (
	ErrBlocked = errors.New("blocked by marketplace anti-bot page")
	ErrNotHTML = errors.New("response is not a marketplace page")
	ErrStatus  = errors.New("unexpected response status")
)

var blockMarkers = []string{
	"captchacharacters",
	"/errors/validatecaptcha",
	"robot check",
	"api-services-support@amazon.com",
	"enter the characters you see below",
	"klicke auf die schaltfläche unten",
}

// CheckMarketplacePage returns nil when body looks like a real marketplace document.
func CheckMarketplacePage(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrNotHTML
	}

	head := body
	if len(head) > 4096 {
		head = head[:4096]
	}
	lowerHead := strings.ToLower(head)
	if !strings.Contains(lowerHead, "<html") && !strings.Contains(lowerHead, "<!doctype html") {
		return ErrNotHTML
	}

	lower := strings.ToLower(body)
	for _, marker := range blockMarkers {
		if strings.Contains(lower, marker) {
			return ErrBlocked
		}
	}

	return nil
}
