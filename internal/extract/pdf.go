package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dslipak/pdf"

	"github.com/svemana/KnowledgeAPI/internal/config"
)

const (
	pageExtractTimeout = 10 * time.Second
	//below this many characters per page the local extraction is considered
	//corrupted and the vision collaborator takes over
	minCharsPerPage = 100
	//same for this share of replacement characters
	maxReplacementRatio = 0.05
)

// extractPDF tries cheap local text extraction first and falls back to the
// vision collaborator when the result looks corrupted (scanned or damaged
// PDFs produce garbage text rather than errors).
func (e *DocumentExtractor) extractPDF(ctx context.Context, storagePath string) (Extraction, error) {
	log := e.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "path", storagePath)

	localPath, err := e.storage.Resolve(ctx, storagePath)
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: resolving pdf: %v", ErrExtractFailed, err)
	}

	text, pageCount, err := localPDFText(localPath)
	if err != nil {
		if errors.Is(err, ErrTooManyPages) {
			return Extraction{}, err
		}
		log.Warn("local pdf extraction failed, falling back to vision", "error", err)
		return e.pdfViaVision(ctx, storagePath, pageCount)
	}

	if looksCorrupted(text, pageCount) {
		log.Warn("local pdf text looks corrupted, falling back to vision",
			"chars", len(text), "pages", pageCount)
		return e.pdfViaVision(ctx, storagePath, pageCount)
	}

	return Extraction{Text: NormalizeText(text), PageCount: pageCount, MimeType: "application/pdf"}, nil
}

func (e *DocumentExtractor) pdfViaVision(ctx context.Context, storagePath string, pageCount int) (Extraction, error) {
	data, err := e.storage.ReadBytes(ctx, storagePath)
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: reading pdf: %v", ErrExtractFailed, err)
	}
	text, err := e.vision.ExtractText(ctx, data, "application/pdf")
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: vision pdf extraction: %v", ErrExtractFailed, err)
	}
	return Extraction{Text: NormalizeText(text), PageCount: pageCount, MimeType: "application/pdf"}, nil
}

func localPDFText(path string) (string, int, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	numPages := f.NumPage()
	if numPages > config.MaxPDFPages {
		return "", numPages, fmt.Errorf("%w: %d pages over cap %d", ErrTooManyPages, numPages, config.MaxPDFPages)
	}

	var b strings.Builder
	extracted := 0
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := protectExtract(page)
		if err != nil {
			// a broken page should not sink the rest of the document
			continue
		}
		b.WriteString(content)
		b.WriteByte('\n')
		extracted++
	}
	if extracted == 0 {
		return "", numPages, errors.New("no extractable pages")
	}
	return b.String(), numPages, nil
}

// protectExtract guards against dslipak/pdf hanging on malformed page streams.
func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(pageExtractTimeout):
		return "", errors.New("page extraction timeout")
	}
}

func looksCorrupted(text string, pageCount int) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	if pageCount > 0 && len(trimmed)/pageCount < minCharsPerPage {
		return true
	}

	replacements := strings.Count(trimmed, string(utf8.RuneError))
	total := utf8.RuneCountInString(trimmed)
	return total > 0 && float64(replacements)/float64(total) > maxReplacementRatio
}
