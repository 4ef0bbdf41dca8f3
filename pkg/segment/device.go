package segment

import "strings"

// Device types reported by DeviceType.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceTV      = "tv"
	DeviceConsole = "console"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

var (
	botWords     = []string{"bot", "spider", "crawler", "slurp", "lighthouse", "facebookexternalhit", "headless"}
	tabletWords  = []string{"tablet", "kindle", "silk", "playbook"}
	mobileWords  = []string{"mobile", "iphone", "ipod", "windows phone", "iemobile", "blackberry", "opera mini"}
	tvWords      = []string{"smart-tv", "smarttv", "appletv", "googletv", "android tv", "webos", "tizen", "roku"}
	consoleWords = []string{"playstation", "xbox", "nintendo"}
	desktopWords = []string{"windows nt", "macintosh", "mac os x", "x11", "linux", "cros "}
)

// DeviceType classifies a User-Agent string into one of the Device* constants.
// It is the local fallback for segments the remote service returns without a
// device type.
func DeviceType(userAgent string) string {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	switch {
	case ua == "":
		return DeviceUnknown
	case strings.Contains(ua, "ipad"):
		return DeviceTablet
	case strings.Contains(ua, "iphone"):
		return DeviceMobile
	case containsAny(ua, botWords):
		return DeviceBot
	case containsAny(ua, tvWords):
		return DeviceTV
	case containsAny(ua, consoleWords):
		return DeviceConsole
	case strings.Contains(ua, "android"):
		// Android tablets omit the "mobile" token.
		if strings.Contains(ua, "mobile") {
			return DeviceMobile
		}
		return DeviceTablet
	case containsAny(ua, tabletWords):
		return DeviceTablet
	case containsAny(ua, mobileWords):
		return DeviceMobile
	case containsAny(ua, desktopWords):
		return DeviceDesktop
	default:
		return DeviceUnknown
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
