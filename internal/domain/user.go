package domain

import "strings"

// SplitFullName splits a profile name into its first token and the remaining tokens.
func SplitFullName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
