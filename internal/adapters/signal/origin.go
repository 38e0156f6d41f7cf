package signal

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// newOriginChecker allows any origin when the list is empty or contains "*".
// Requests without an Origin header are not from a browser and are allowed.
func newOriginChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		trimmed := strings.TrimSpace(o)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			return func(*http.Request) bool { return true }
		}
		n, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn().Str("module", "signal").Str("origin", o).Msg("ignoring invalid origin in configuration")
			continue
		}
		allowed[n] = struct{}{}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		n, ok := normalizeOrigin(origin)
		if ok {
			if _, exists := allowed[n]; exists {
				return true
			}
		}
		log.Warn().Str("module", "signal").Str("origin", origin).Msg("blocked WS connection from disallowed origin")
		return false
	}
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
