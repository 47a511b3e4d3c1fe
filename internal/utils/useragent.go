package utils

import (
	"fmt"

	ua "github.com/mssola/user_agent"
)

// DeviceSummary condenses a User-Agent string into a short human-readable
// description stored on the OTP request audit trail.
func DeviceSummary(userAgent string) string {
	if userAgent == "" {
		return "unknown"
	}

	parser := ua.New(userAgent)
	if parser.Bot() {
		return "bot"
	}

	browser, _ := parser.Browser()
	os := parser.OS()
	if browser == "" {
		browser = "unknown"
	}
	if os == "" {
		os = "unknown"
	}

	kind := "desktop"
	if parser.Mobile() {
		kind = "mobile"
	}

	return fmt.Sprintf("%s (%s, %s)", browser, os, kind)
}
