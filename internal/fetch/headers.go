package fetch

import (
	"math/rand"
	"net/http"
)

// HeaderProfile is a coherent set of browser request headers.
type HeaderProfile struct {
	UserAgent      string
	AcceptLanguage string
	Extra          map[string]string
}

// Accept-Encoding is left to the transport so bodies are transparently decompressed.
var commonHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Upgrade-Insecure-Requests": "1",
	"Cache-Control":             "no-cache",
	"Pragma":                    "no-cache",
	"DNT":                       "1",
}

var DefaultProfiles = []HeaderProfile{
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		AcceptLanguage: "en-GB,en-US;q=0.9,en;q=0.8",
		Extra: map[string]string{
			"Sec-Fetch-Dest": "document",
			"Sec-Fetch-Mode": "navigate",
			"Sec-Fetch-Site": "none",
			"Sec-Fetch-User": "?1",
		},
	},
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		AcceptLanguage: "en-US,en;q=0.9",
	},
	{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		AcceptLanguage: "en-US,en;q=0.8",
		Extra: map[string]string{
			"Sec-Fetch-Dest": "document",
			"Sec-Fetch-Mode": "navigate",
			"Sec-Fetch-Site": "none",
		},
	},
	{
		UserAgent:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
		AcceptLanguage: "en-GB,en;q=0.9",
	},
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
		AcceptLanguage: "en-US,en;q=0.7,de;q=0.3",
	},
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
		AcceptLanguage: "en-GB,en;q=0.9,de-DE;q=0.6",
		Extra: map[string]string{
			"Sec-Fetch-Dest": "document",
			"Sec-Fetch-Mode": "navigate",
		},
	},
}

func pickProfile(profiles []HeaderProfile) HeaderProfile {
	if len(profiles) == 0 {
		return DefaultProfiles[rand.Intn(len(DefaultProfiles))]
	}
	return profiles[rand.Intn(len(profiles))]
}

// Apply sets the profile's headers on req.
func (p HeaderProfile) Apply(req *http.Request) {
	for k, v := range commonHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", p.UserAgent)
	req.Header.Set("Accept-Language", p.AcceptLanguage)
	for k, v := range p.Extra {
		req.Header.Set(k, v)
	}
}

// ProfilesFromUserAgents builds one profile per user agent, cycling through
// the default accept-language values.
func ProfilesFromUserAgents(agents []string) []HeaderProfile {
	profiles := make([]HeaderProfile, 0, len(agents))
	for i, ua := range agents {
		profiles = append(profiles, HeaderProfile{
			UserAgent:      ua,
			AcceptLanguage: DefaultProfiles[i%len(DefaultProfiles)].AcceptLanguage,
		})
	}
	return profiles
}
