package anticheat

import "strings"

// mobileTokens are the user-agent substrings that mark a mobile or tablet
// device. Matching is deliberately a coarse substring check: carrier NAT and
// Wi-Fi handoff make mid-session IP changes routine on these devices, so we
// only need a device-class signal, not full UA parsing.
var mobileTokens = []string{
	"mobile",
	"android",
	"iphone",
	"ipad",
	"ipod",
	"blackberry",
	"iemobile",
	"opera mini",
	"webos",
	"windows phone",
}

// IsMobileUserAgent reports whether the user agent looks like a mobile or
// tablet browser.
func IsMobileUserAgent(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, token := range mobileTokens {
		if strings.Contains(ua, token) {
			return true
		}
	}
	return false
}
