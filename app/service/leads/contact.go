package leads

import (
	"regexp"
	"strings"
)

var (
	phoneSeparatorRe = regexp.MustCompile(`[\s\-().]`)
	phoneDigitsRe    = regexp.MustCompile(`[0-9]{7,}`)
)

const maxHandleLength = 64

// ContainsContact reports whether text carries something reachable: a
// phone-like digit run or an email/handle token.
func ContainsContact(text string) bool {
	return containsPhone(text) || containsHandle(text)
}

// containsPhone looks for 7+ consecutive digits once common separators are
// removed, so "081-234-5678" and "+7 912 345 67 89" both count.
func containsPhone(text string) bool {
	cleaned := phoneSeparatorRe.ReplaceAllString(text, "")

	return phoneDigitsRe.MatchString(cleaned)
}

// containsHandle looks for a whitespace-delimited token with an @ in it that
// is short enough to plausibly be an email address or messenger handle.
func containsHandle(text string) bool {
	for _, token := range strings.Fields(text) {
		if !strings.Contains(token, "@") {
			continue
		}

		token = strings.Trim(token, ".,;:!?()[]")
		if len(token) < 2 || len(token) > maxHandleLength {
			continue
		}
		if strings.Trim(token, "@") == "" {
			continue
		}

		return true
	}

	return false
}
