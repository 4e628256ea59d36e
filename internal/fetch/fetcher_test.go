package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

// testFetcher wires a fetcher to an httptest server, bypassing the https-only
// policy so the loopback test server is reachable. Policy behaviour itself is
// covered by guard_test.go; these tests cover redirects, caps and streaming.
func testFetcher(server *httptest.Server, reject func(string) bool) *Fetcher {
	client := server.Client()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Fetcher{
		client: client,
		validate: func(ctx context.Context, raw string, lookup LookupIPFunc) (*url.URL, error) {
			if reject != nil && reject(raw) {
				return nil, ErrURLNotAllowed
			}
			return url.Parse(raw)
		},
		maxRedirects: 5,
		textCap:      1 << 20,
		binaryCap:    4 << 20,
		logger:       logger_i.NewLogger("fetch test"),
	}
}

func TestFetch_FollowsRedirectsAndReturnsFinalURL(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewTLSServer(mux)
	defer server.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/hop", http.StatusFound)
	})
	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>menu page</body></html>"))
	})

	f := testFetcher(server, nil)
	res, err := f.Fetch(context.Background(), server.URL+"/start")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !strings.HasSuffix(res.FinalURL, "/final") {
		t.Errorf("FinalURL = %s, want .../final", res.FinalURL)
	}
	if !strings.Contains(string(res.Body), "menu page") {
		t.Errorf("unexpected body: %s", res.Body)
	}
}

func TestFetch_RedirectTargetRevalidated(t *testing.T) {
	var finalHits int32
	mux := http.NewServeMux()
	server := httptest.NewTLSServer(mux)
	defer server.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/internal", http.StatusFound)
	})
	mux.HandleFunc("/internal", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&finalHits, 1)
		w.Write([]byte("secret"))
	})

	f := testFetcher(server, func(raw string) bool {
		return strings.HasSuffix(raw, "/internal")
	})

	_, err := f.Fetch(context.Background(), server.URL+"/start")
	if !errors.Is(err, ErrURLNotAllowed) {
		t.Fatalf("expected UrlNotAllowed on redirect target, got %v", err)
	}
	if atomic.LoadInt32(&finalHits) != 0 {
		t.Error("rejected redirect target was still requested")
	}
}

func TestFetch_RedirectLoopCapped(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewTLSServer(mux)
	defer server.Close()

	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})

	f := testFetcher(server, nil)
	_, err := f.Fetch(context.Background(), server.URL+"/loop")
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected FetchFailed after redirect cap, got %v", err)
	}
}

func TestFetch_SizeCaps(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewTLSServer(mux)
	defer server.Close()

	big := strings.Repeat("a", 2<<20)
	mux.HandleFunc("/big-text", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Length", strconv.Itoa(len(big)))
		w.Write([]byte(big))
	})
	mux.HandleFunc("/chunked", func(w http.ResponseWriter, r *http.Request) {
		// no Content-Length; the running byte counter has to catch this one
		w.Header().Set("Content-Type", "text/plain")
		fl := w.(http.Flusher)
		for i := 0; i < 64; i++ {
			w.Write([]byte(strings.Repeat("b", 32<<10)))
			fl.Flush()
		}
	})

	f := testFetcher(server, nil)
	f.textCap = 1 << 20

	if _, err := f.Fetch(context.Background(), server.URL+"/big-text"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("content-length pre-check: expected TooLarge, got %v", err)
	}
	if _, err := f.Fetch(context.Background(), server.URL+"/chunked"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("streamed counter: expected TooLarge, got %v", err)
	}
}
