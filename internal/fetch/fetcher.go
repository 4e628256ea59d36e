package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/customHttpClient"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

var (
	ErrURLNotAllowed = errors.New("UrlNotAllowed")
	ErrTooLarge      = errors.New("TooLarge")
	ErrFetchFailed   = errors.New("FetchFailed")
	ErrTimeout       = errors.New("Timeout")
)

type Result struct {
	Body        []byte
	FinalURL    string
	ContentType string
	StatusCode  int
}

// Fetcher retrieves external URLs under the SSRF policy in guard.go. Redirects
// are followed by hand so every hop is re-validated; the http client itself
// never follows one.
type Fetcher struct {
	client       *http.Client
	lookup       LookupIPFunc
	validate     func(ctx context.Context, raw string, lookup LookupIPFunc) (*url.URL, error)
	maxRedirects int
	textCap      int64
	binaryCap    int64
	logger       *logger_i.Logger
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Transport: customHttpClient.Transport(),
			Timeout:   config.FetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		lookup:       defaultLookupIP,
		validate:     ValidateURL,
		maxRedirects: config.MaxRedirectHops,
		textCap:      config.MaxTextBodyBytes,
		binaryCap:    config.MaxBinaryBodyBytes,
		logger:       logger_i.NewLogger("Fetcher"),
	}
}

// Fetch retrieves rawURL, following up to maxRedirects hops. Every hop goes
// through the full URL validation before any request is issued to it.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	log := f.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	ctx, cancel := context.WithTimeout(ctx, config.FetchTimeout)
	defer cancel()

	current := rawURL
	for hop := 0; hop <= f.maxRedirects; hop++ {
		target, err := f.validate(ctx, current, f.lookup)
		if err != nil {
			log.Warn("url rejected", "url", current, "error", err)
			return Result{}, err
		}

		resp, err := f.do(ctx, target)
		if err != nil {
			return Result{}, err
		}

		if isRedirect(resp.StatusCode) {
			loc := resp.Header.Get("Location")
			drain(resp.Body)
			if loc == "" {
				return Result{}, fmt.Errorf("%w: redirect without location", ErrFetchFailed)
			}
			next, err := target.Parse(loc)
			if err != nil {
				return Result{}, fmt.Errorf("%w: bad redirect target", ErrFetchFailed)
			}
			log.Debug("following redirect", "hop", hop+1, "to", next.String())
			current = next.String()
			continue
		}

		body, err := f.readCapped(resp)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Body:        body,
			FinalURL:    target.String(),
			ContentType: resp.Header.Get("Content-Type"),
			StatusCode:  resp.StatusCode,
		}, nil
	}
	return Result{}, fmt.Errorf("%w: more than %d redirects", ErrFetchFailed, f.maxRedirects)
}

func (f *Fetcher) do(ctx context.Context, target *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", config.FetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,image/*,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return resp, nil
}

// readCapped streams the body under the size cap for its content type. The
// Content-Length pre-check catches honest servers cheaply; the limited reader
// catches the rest.
func (f *Fetcher) readCapped(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	cap := f.capFor(resp.Header.Get("Content-Type"))
	if resp.ContentLength > cap {
		return nil, fmt.Errorf("%w: content-length %d over cap %d", ErrTooLarge, resp.ContentLength, cap)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, cap+1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: reading body: %v", ErrFetchFailed, err)
	}
	if int64(len(body)) > cap {
		return nil, fmt.Errorf("%w: body over cap %d", ErrTooLarge, cap)
	}
	return body, nil
}

func (f *Fetcher) capFor(contentType string) int64 {
	ct := strings.ToLower(contentType)
	if strings.HasPrefix(ct, "text/") || strings.Contains(ct, "json") || strings.Contains(ct, "xml") {
		return f.textCap
	}
	return f.binaryCap
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func isClientTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	var t timeouter
	return errors.As(err, &t) && t.Timeout()
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
