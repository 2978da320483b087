package env

import (
	"os"
	"strings"
)

// Get reads a storefront setting from the environment. Unset and blank
// values both fall back.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
