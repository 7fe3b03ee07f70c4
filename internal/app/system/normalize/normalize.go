// Package normalize canonicalizes user-entered account fields before storage
// and comparison.
package normalize

import "strings"

// Email trims and lowercases an email address.
func Email(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Name trims surrounding space and collapses internal runs of whitespace.
// Case is preserved.
func Name(s string) string { return strings.Join(strings.Fields(s), " ") }

// Status trims and lowercases an account status.
func Status(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
