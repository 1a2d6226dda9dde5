package utils

import (
	"sort"
	"strings"
)

// NormalizeAddressList lowercases, trims and sorts a list of addresses so
// that logically identical lists compare (and hash) identically.
func NormalizeAddressList(addresses []string) []string {
	normalized := make([]string, 0, len(addresses))
	for _, a := range addresses {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			normalized = append(normalized, a)
		}
	}
	sort.Strings(normalized)
	return normalized
}
