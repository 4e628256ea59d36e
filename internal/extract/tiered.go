package extract

import (
	"bytes"
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/metrics"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

type PageResult struct {
	Class Classification
	Text  string
	//LowConfidenceItems counts embedded-JSON items matched on name shape alone.
	//The heuristic has no real confidence score; callers can surface this.
	LowConfidenceItems int
}

// ExtractPage runs the cheapest-first tier chain on fetched HTML. The headless
// tier is NOT invoked here - it costs real money, so the caller escalates on
// js_shell_detected explicitly.
func ExtractPage(ctx context.Context, body []byte, statusCode int, pageURL string) PageResult {
	log := logger_i.NewLogger("Tiered Extractor").With("traceId", ctx.Value(config.TRACE_ID_KEY), "url", pageURL)

	bodyStr := string(body)
	if class, blocked := classifyBlocking(statusCode, bodyStr); blocked {
		log.Warn("page blocked before extraction", "class", class, "status", statusCode)
		metrics.CountExtractionTier(string(class))
		return PageResult{Class: class}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		log.Error("html parse failed", "error", err)
		metrics.CountExtractionTier(string(ParseError))
		return PageResult{Class: ParseError}
	}
	scriptCount := doc.Find("script").Length()

	//tier 1: static text
	staticText := staticExtract(doc)
	if len(staticText) >= config.MinMeaningfulTextLen {
		log.Debug("static tier succeeded", "chars", len(staticText))
		metrics.CountExtractionTier(string(StaticOK))
		return PageResult{Class: StaticOK, Text: staticText}
	}

	//tier 2: embedded app-shell JSON
	if res, found := extractEmbeddedJSON(bodyStr); found {
		if res.lowConfidence > 0 {
			log.Warn("embedded items matched without a price-like field", "lowConfidence", res.lowConfidence, "total", len(res.lines))
		}
		log.Debug("embedded tier succeeded", "items", len(res.lines))
		metrics.CountExtractionTier(string(EmbeddedJSONOK))
		return PageResult{Class: EmbeddedJSONOK, Text: embeddedText(res), LowConfidenceItems: res.lowConfidence}
	}

	//shell detection decides whether the expensive rendering tier is warranted
	if looksLikeAppShell(scriptCount, staticText) {
		log.Debug("app shell detected", "scripts", scriptCount, "staticChars", len(staticText))
		metrics.CountExtractionTier(string(JSShellDetected))
		return PageResult{Class: JSShellDetected, Text: staticText}
	}

	metrics.CountExtractionTier(string(NoItemsFound))
	return PageResult{Class: NoItemsFound, Text: staticText}
}
