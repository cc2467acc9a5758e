package identity

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeIdentifier folds usernames and emails so lookups are case-insensitive.
func NormalizeIdentifier(raw string) string {
	return cases.Fold().String(strings.TrimSpace(raw))
}
