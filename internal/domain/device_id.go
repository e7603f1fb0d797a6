package domain

import "strings"

// NormalizeDeviceID trims and upper-cases a device id and rejects placeholder ids.
func NormalizeDeviceID(raw string) string {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if v == "" || v == "UNKNOWN" {
		return ""
	}

	return v
}
