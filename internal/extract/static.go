package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// contentSelectors in priority order. The first selector yielding meaningful
// text wins; the body is the fallback of last resort.
var contentSelectors = []string{
	"main",
	"article",
	"[role=main]",
	"#content",
	"#main-content",
	".main-content",
	".content",
	"#main",
}

var boilerplateSelectors = "script, style, noscript, nav, footer, header, aside, form, iframe, svg"

var whitespaceRun = regexp.MustCompile(`[ \t]+`)
var blankLineRun = regexp.MustCompile(`\n{3,}`)

// staticExtract is the cheap tier: parse the HTML, strip boilerplate, and read
// text out of the most content-looking region.
func staticExtract(doc *goquery.Document) string {
	doc.Find(boilerplateSelectors).Remove()

	for _, sel := range contentSelectors {
		region := doc.Find(sel)
		if region.Length() == 0 {
			continue
		}
		if text := collapseText(region.Text()); len(text) >= minSelectorTextLen {
			return text
		}
	}
	return collapseText(doc.Find("body").Text())
}

// a selector hit below this many chars is treated as a miss and the next
// selector is tried
const minSelectorTextLen = 80

func collapseText(raw string) string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(whitespaceRun.ReplaceAllString(line, " "))
		out = append(out, line)
	}
	joined := strings.Join(out, "\n")
	joined = blankLineRun.ReplaceAllString(joined, "\n\n")
	return strings.TrimSpace(joined)
}

// looksLikeAppShell detects SPA shells: a page whose visible text is minimal
// while its script weight is not. Classifying these as js_shell_detected (vs
// no_items_found) is what licenses paying for the rendering tier. scriptCount
// must be taken before boilerplate stripping removes the script tags.
func looksLikeAppShell(scriptCount int, bodyText string) bool {
	lower := strings.ToLower(bodyText)
	for _, marker := range jsShellMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	textLen := len(strings.TrimSpace(bodyText))
	if textLen < 120 && scriptCount >= 3 {
		return true
	}
	if scriptCount > 0 && textLen/scriptCount < 40 && scriptCount >= 8 {
		return true
	}
	if strings.Contains(lower, "loading...") && textLen < 300 {
		return true
	}
	return false
}
