package enrich

import "strings"

// Browser family labels.
const (
	BrowserFirefox = "Firefox"
	BrowserChrome  = "Chrome"
	BrowserSafari  = "Safari"
	BrowserIE      = "Internet Explorer"
	BrowserOther   = "Other"
)

// OS family labels.
const (
	OSWindows = "Windows"
	OSMacOS   = "macOS"
	OSLinux   = "Linux"
	OSAndroid = "Android"
	OSIOS     = "iOS"
	OSOther   = "Other"
)

// ClassifyUserAgent detects browser and OS families by case-insensitive
// substring match.
//
// Match order is load-bearing: UA substrings overlap (Chrome UAs contain
// "safari", IE UAs contain "windows"), so firefox > chrome > safari > msie/
// trident, and windows > mac > linux > android > ios must be preserved.
func ClassifyUserAgent(userAgent string) (browser, os string) {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "firefox"):
		browser = BrowserFirefox
	case strings.Contains(ua, "chrome"):
		browser = BrowserChrome
	case strings.Contains(ua, "safari"):
		browser = BrowserSafari
	case strings.Contains(ua, "msie") || strings.Contains(ua, "trident"):
		browser = BrowserIE
	default:
		browser = BrowserOther
	}

	switch {
	case strings.Contains(ua, "windows"):
		os = OSWindows
	case strings.Contains(ua, "mac") || strings.Contains(ua, "darwin"):
		os = OSMacOS
	case strings.Contains(ua, "linux"):
		os = OSLinux
	case strings.Contains(ua, "android"):
		os = OSAndroid
	case strings.Contains(ua, "ios") || strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		os = OSIOS
	default:
		os = OSOther
	}

	return browser, os
}
