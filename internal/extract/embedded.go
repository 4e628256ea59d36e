package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/svemana/KnowledgeAPI/internal/config"
)

// embeddedPayloadPatterns locate app-shell JSON in raw HTML, in priority order.
// Hydration blobs first (they usually hold the full catalog), JSON-LD last.
var embeddedPayloadPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)<script[^>]*id="__NEXT_DATA__"[^>]*>(.*?)</script>`),
	regexp.MustCompile(`(?s)window\.__NUXT__\s*=\s*(\{.*?\})\s*(?:;|</script>)`),
	regexp.MustCompile(`(?s)window\.__INITIAL_STATE__\s*=\s*(\{.*?\})\s*(?:;|</script>)`),
	regexp.MustCompile(`(?s)window\.__APOLLO_STATE__\s*=\s*(\{.*?\})\s*(?:;|</script>)`),
	regexp.MustCompile(`(?s)window\.__PRELOADED_STATE__\s*=\s*(\{.*?\})\s*(?:;|</script>)`),
	regexp.MustCompile(`(?s)<script[^>]*type="application/ld\+json"[^>]*>(.*?)</script>`),
}

var nameKeys = []string{"name", "title", "label", "itemName", "productName"}
var priceKeys = []string{"price", "amount", "cost", "priceAmount", "unitPrice", "value", "offers"}
var descriptionKeys = []string{"description", "desc", "summary", "details"}

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

type embeddedResult struct {
	lines         []string
	lowConfidence int //items matched on name shape alone, no price-like field
}

// extractEmbeddedJSON is tier two: find hydration/state/JSON-LD payloads,
// parse them leniently, and hunt the parsed structures for arrays of
// item-shaped objects.
func extractEmbeddedJSON(body string) (embeddedResult, bool) {
	var res embeddedResult
	for _, pattern := range embeddedPayloadPatterns {
		matches := pattern.FindAllStringSubmatch(body, -1)
		for _, m := range matches {
			payload := strings.TrimSpace(m[1])
			if payload == "" || len(payload) > config.MaxEmbeddedJSONBytes {
				continue
			}
			parsed, err := lenientParse(payload)
			if err != nil {
				continue
			}
			collectItems(parsed, 0, &res)
		}
		if len(res.lines) > 0 {
			return res, true
		}
	}
	return res, false
}

// lenientParse recovers from the sloppy JSON real sites emit: trailing commas
// are stripped before the strict pass. Anything else stays a parse failure;
// structure beyond shape is never trusted.
func lenientParse(payload string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(payload), &v); err == nil {
		return v, nil
	}
	repaired := trailingComma.ReplaceAllString(payload, "$1")
	var v2 any
	if err := json.Unmarshal([]byte(repaired), &v2); err != nil {
		return nil, err
	}
	return v2, nil
}

// collectItems walks the parsed structure to bounded depth looking for arrays
// of objects that carry a name-ish field, mapping each to a readable line.
func collectItems(v any, depth int, res *embeddedResult) {
	if depth > config.MaxEmbeddedJSONDepth {
		return
	}
	switch node := v.(type) {
	case []any:
		if itemCount := countItemShaped(node); itemCount >= 2 || (itemCount == 1 && len(node) == 1) {
			for _, el := range node {
				obj, ok := el.(map[string]any)
				if !ok {
					continue
				}
				if line, priced, ok := itemLine(obj); ok {
					res.lines = append(res.lines, line)
					if !priced {
						res.lowConfidence++
					}
				}
			}
			return
		}
		for _, el := range node {
			collectItems(el, depth+1, res)
		}
	case map[string]any:
		for _, child := range node {
			collectItems(child, depth+1, res)
		}
	}
}

func countItemShaped(arr []any) int {
	n := 0
	for _, el := range arr {
		if obj, ok := el.(map[string]any); ok {
			if _, _, ok := itemLine(obj); ok {
				n++
			}
		}
	}
	return n
}

// itemLine renders a product-shaped object as a text line. The heuristic is a
// name/title field plus, ideally, a price-like field; name-only matches are
// accepted but reported as low confidence.
func itemLine(obj map[string]any) (line string, priced bool, ok bool) {
	name := firstString(obj, nameKeys)
	if name == "" || len(name) > 200 {
		return "", false, false
	}

	parts := []string{name}
	if price, found := firstNumberish(obj, priceKeys); found {
		parts = append(parts, price)
		priced = true
	}
	if desc := firstString(obj, descriptionKeys); desc != "" && len(desc) <= 300 {
		parts = append(parts, desc)
	}
	return strings.Join(parts, " - "), priced, true
}

func firstString(obj map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstNumberish(obj map[string]any, keys []string) (string, bool) {
	for _, k := range keys {
		switch val := obj[k].(type) {
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64), true
		case string:
			trimmed := strings.TrimSpace(val)
			if trimmed == "" {
				continue
			}
			if _, err := strconv.ParseFloat(strings.TrimLeft(trimmed, "$€£"), 64); err == nil {
				return trimmed, true
			}
		case map[string]any:
			// JSON-LD offers nest the price one level down
			if nested, ok := firstNumberish(val, priceKeys); ok {
				return nested, true
			}
		}
	}
	return "", false
}

func embeddedText(res embeddedResult) string {
	return strings.Join(res.lines, "\n")
}
