package factpack

import (
	"regexp"
	"strings"

	"github.com/pipeline-velocity/backend/pkg/utils"
)

// The fact pack may carry requisition identifiers and nothing else from
// the raw records. Identifiers are opaque in well-behaved systems, but the
// redaction contract has to hold for adversarial input too, so any id
// that looks like it could carry personal data is replaced by a digest.

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	// Seven or more digits in a row, optionally broken by separators.
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9 ()\-.]{5,}[0-9]`)
	// Two or more capitalized words separated by spaces reads like a name.
	namePattern = regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+)+\b`)
)

// SanitizeID returns the identifier unchanged when it is safe, or a
// stable digest substitute when it could embed an email, phone number,
// name, or whitespace-separated free text.
func SanitizeID(id string) string {
	if id == "" {
		return id
	}
	if looksLikePII(id) || strings.ContainsAny(id, " \t\n") {
		return "req-" + utils.ShortHash(id)
	}
	return id
}

func looksLikePII(s string) bool {
	if emailPattern.MatchString(s) {
		return true
	}
	if phonePattern.MatchString(s) {
		return true
	}
	return namePattern.MatchString(s)
}

func sanitizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, SanitizeID(id))
	}
	return out
}
