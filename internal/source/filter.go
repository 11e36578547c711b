package source

import "strings"

var nonDataTabs = map[string]bool{
	"summary":      true,
	"config":       true,
	"dashboard":    true,
	"settings":     true,
	"instructions": true,
	"template":     true,
}

// IsDataTab reports whether a tab title may hold inventory rows.
func IsDataTab(title string) bool {
	return !nonDataTabs[strings.ToLower(strings.TrimSpace(title))]
}
