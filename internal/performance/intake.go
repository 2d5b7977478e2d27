package performance

import "strings"

// IsAllowedRequestURL reports whether requests to url may be collected.
// Empty URLs and URLs of the collector's own intakes are not.
func IsAllowedRequestURL(intakes []string, url string) bool {
	if url == "" {
		return false
	}
	for _, intake := range intakes {
		if intake != "" && strings.HasPrefix(url, intake) {
			return false
		}
	}
	return true
}
