package extract

import (
	"net/http"
	"strings"
)

// Classification names the outcome of one extraction attempt. Callers branch on
// it to decide whether retrying, escalating to the rendering tier, or telling
// the user the site is blocking us.
type Classification string

const (
	StaticOK         Classification = "static_ok"
	EmbeddedJSONOK   Classification = "embedded_json_ok"
	JSShellDetected  Classification = "js_shell_detected"
	HeadlessOK       Classification = "headless_json_ok"
	HeadlessNoItems  Classification = "headless_no_items"
	Blocked403       Classification = "blocked_403"
	RateLimited429   Classification = "rate_limited_429"
	CaptchaChallenge Classification = "captcha_challenge"
	NoItemsFound     Classification = "no_items_found"
	ParseError       Classification = "parse_error"
	Timeout          Classification = "timeout"
)

// challengeMarkers show up in CAPTCHA and bot-wall pages regardless of status
// code. Checked case-insensitively against the body.
var challengeMarkers = []string{
	"captcha",
	"cf-challenge",
	"cf-turnstile",
	"are you a robot",
	"verify you are human",
	"attention required",
	"just a moment...",
	"ddos protection by",
	"px-captcha",
}

var jsShellMarkers = []string{
	"you need to enable javascript",
	"please enable javascript",
	"enable javascript to run this app",
	"this site requires javascript",
}

// classifyBlocking short-circuits on blocking/rate-limiting/challenge signals.
// These pages never carry extractable content, so trying further tiers (or a
// paid render) on them is wasted effort.
func classifyBlocking(statusCode int, body string) (Classification, bool) {
	lower := strings.ToLower(body)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return CaptchaChallenge, true
		}
	}
	switch statusCode {
	case http.StatusForbidden, http.StatusUnauthorized:
		return Blocked403, true
	case http.StatusTooManyRequests:
		return RateLimited429, true
	}
	if statusCode >= 500 {
		return ParseError, true
	}
	return "", false
}
