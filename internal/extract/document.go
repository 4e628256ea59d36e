package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/lu4p/cat"

	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/domain/knowledge"
	"github.com/svemana/KnowledgeAPI/internal/fetch"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

var (
	ErrExtractFailed = errors.New("extract failed")
	ErrTooManyPages  = errors.New("too many pages")
)

// Storage is the byte-storage collaborator holding uploaded pdf/image/file
// sources. Resolve maps an opaque storage path to a local file path the
// extractors can open; the core only ever reads.
type Storage interface {
	Resolve(ctx context.Context, storagePath string) (localPath string, err error)
	ReadBytes(ctx context.Context, storagePath string) ([]byte, error)
}

// VisionExtractor is the image/document-understanding collaborator.
type VisionExtractor interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
}

type Extraction struct {
	Text      string
	PageCount int
	MimeType  string
	Class     Classification
}

// DocumentExtractor dispatches by source kind and funnels every path into one
// normalized-text result.
type DocumentExtractor struct {
	fetcher  *fetch.Fetcher
	renderer Renderer
	vision   VisionExtractor
	storage  Storage
	logger   *logger_i.Logger
}

func NewDocumentExtractor(fetcher *fetch.Fetcher, renderer Renderer, vision VisionExtractor, storage Storage) *DocumentExtractor {
	return &DocumentExtractor{
		fetcher:  fetcher,
		renderer: renderer,
		vision:   vision,
		storage:  storage,
		logger:   logger_i.NewLogger("Document Extractor"),
	}
}

func (e *DocumentExtractor) Extract(ctx context.Context, doc knowledge.KnowledgeDocument) (Extraction, error) {
	if err := doc.ValidateSource(); err != nil {
		return Extraction{}, err
	}

	switch doc.Kind {
	case knowledge.KindText:
		return Extraction{Text: NormalizeText(doc.SourceText), MimeType: "text/plain"}, nil
	case knowledge.KindURL:
		return e.extractURL(ctx, doc.SourceURL)
	case knowledge.KindPDF:
		return e.extractPDF(ctx, doc.StoragePath)
	case knowledge.KindImage:
		return e.extractImage(ctx, doc.StoragePath)
	case knowledge.KindFile:
		return e.extractOfficeFile(ctx, doc.StoragePath)
	default:
		return Extraction{}, fmt.Errorf("%w: unknown kind %s", ErrExtractFailed, doc.Kind)
	}
}

// ExtractSource extracts one catalog job source. Same dispatch, source-ref form.
func (e *DocumentExtractor) ExtractSource(ctx context.Context, src SourceInput) (Extraction, error) {
	doc := knowledge.KnowledgeDocument{
		Kind:        src.Kind,
		SourceURL:   src.SourceURL,
		StoragePath: src.StoragePath,
	}
	return e.Extract(ctx, doc)
}

// SourceInput mirrors ingestjob.SourceRef without importing it; keeps the
// extract package free of job-domain knowledge.
type SourceInput struct {
	Kind        knowledge.SourceKind
	SourceURL   string
	StoragePath string
}

func Source(kind knowledge.SourceKind, sourceURL, storagePath string) SourceInput {
	return SourceInput{Kind: kind, SourceURL: sourceURL, StoragePath: storagePath}
}

func (e *DocumentExtractor) extractURL(ctx context.Context, sourceURL string) (Extraction, error) {
	log := e.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "url", sourceURL)

	page, res, err := e.extractOnePage(ctx, sourceURL)
	if err != nil {
		return Extraction{}, err
	}
	switch page.Class {
	case Blocked403, RateLimited429, CaptchaChallenge, ParseError, Timeout:
		return Extraction{Class: page.Class}, fmt.Errorf("%w: %s", ErrExtractFailed, page.Class)
	}

	text := page.Text
	// Thin primary page: follow a handful of same-origin links that look like
	// they lead to the catalog content. Bounded, scored, never general crawling.
	if len(text) < config.MinMeaningfulTextLen*2 {
		for _, candidate := range candidateLinks(res.Body, res.FinalURL) {
			sub, _, err := e.extractOnePage(ctx, candidate)
			if err != nil || sub.Text == "" {
				continue
			}
			log.Debug("followed candidate link", "link", candidate, "chars", len(sub.Text))
			text = text + "\n\n" + sub.Text
		}
	}

	text = NormalizeText(text)
	if len(text) < config.ChunkMinLength {
		return Extraction{Class: NoItemsFound}, fmt.Errorf("%w: no meaningful text", ErrExtractFailed)
	}
	return Extraction{Text: text, MimeType: "text/html", Class: page.Class}, nil
}

func (e *DocumentExtractor) extractOnePage(ctx context.Context, pageURL string) (PageResult, fetch.Result, error) {
	res, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return PageResult{}, fetch.Result{}, err
	}

	page := ExtractPage(ctx, res.Body, res.StatusCode, res.FinalURL)
	if page.Class == JSShellDetected && e.renderer != nil {
		rendered, rerr := e.renderer.Render(ctx, res.FinalURL)
		if rerr != nil {
			e.logger.Error("rendering tier failed", "url", res.FinalURL, "error", rerr)
			return page, res, nil //keep whatever the shell gave us
		}
		page = mapRenderResult(rendered)
	}
	return page, res, nil
}

// catalogKeywords score candidate links; a link whose text or path mentions
// any of these likely leads to the content we came for.
var catalogKeywords = []string{"menu", "price", "pricing", "services", "products", "catalog", "shop", "order"}

func candidateLinks(body []byte, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}

	type scored struct {
		href  string
		score int
	}
	seen := map[string]bool{}
	var candidates []scored

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		resolved, err := base.Parse(href)
		if err != nil || resolved.Host != base.Host || resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""
		full := resolved.String()
		if seen[full] || full == baseURL {
			return
		}

		hay := strings.ToLower(sel.Text() + " " + resolved.Path)
		score := 0
		for _, kw := range catalogKeywords {
			if strings.Contains(hay, kw) {
				score++
			}
		}
		if score > 0 {
			seen[full] = true
			candidates = append(candidates, scored{href: full, score: score})
		}
	})

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > config.MaxCandidateLinks {
		candidates = candidates[:config.MaxCandidateLinks]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.href
	}
	return out
}

func (e *DocumentExtractor) extractImage(ctx context.Context, storagePath string) (Extraction, error) {
	data, err := e.storage.ReadBytes(ctx, storagePath)
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: reading image: %v", ErrExtractFailed, err)
	}
	text, err := e.vision.ExtractText(ctx, data, mimeForPath(storagePath))
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: vision extraction: %v", ErrExtractFailed, err)
	}
	return Extraction{Text: NormalizeText(text), MimeType: mimeForPath(storagePath)}, nil
}

func (e *DocumentExtractor) extractOfficeFile(ctx context.Context, storagePath string) (Extraction, error) {
	localPath, err := e.storage.Resolve(ctx, storagePath)
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: resolving file: %v", ErrExtractFailed, err)
	}
	text, err := cat.File(localPath)
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: office file extraction: %v", ErrExtractFailed, err)
	}
	return Extraction{Text: NormalizeText(text), MimeType: mimeForPath(storagePath)}, nil
}

var crlf = regexp.MustCompile(`\r\n?`)

func NormalizeText(text string) string {
	text = crlf.ReplaceAllString(text, "\n")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func mimeForPath(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	case strings.HasSuffix(lower, ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case strings.HasSuffix(lower, ".rtf"):
		return "application/rtf"
	default:
		return "application/octet-stream"
	}
}
