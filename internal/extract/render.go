package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/customHttpClient"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

// Renderer is the headless rendering collaborator. Last-resort tier: invoked
// only after js_shell_detected, never speculatively.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (RenderResult, error)
}

type RenderResult struct {
	Status string `json:"status"` //ok | no_items | error
	Text   string `json:"text"`
}

type httpRenderer struct {
	endpoint string
	client   *http.Client
	logger   *logger_i.Logger
}

func NewHTTPRenderer(endpoint string) Renderer {
	return &httpRenderer{
		endpoint: endpoint,
		client: &http.Client{
			Transport: customHttpClient.Transport(),
			Timeout:   config.RenderRequestTimeout,
		},
		logger: logger_i.NewLogger("Renderer"),
	}
}

func (r *httpRenderer) Render(ctx context.Context, pageURL string) (RenderResult, error) {
	log := r.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "url", pageURL)

	if r.endpoint == "" {
		return RenderResult{}, fmt.Errorf("render service not configured")
	}

	payload, _ := json.Marshal(map[string]string{"url": pageURL})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return RenderResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug("invoking rendering tier")
	resp, err := r.client.Do(req)
	if err != nil {
		return RenderResult{}, fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RenderResult{}, fmt.Errorf("render service returned %d", resp.StatusCode)
	}

	var result RenderResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return RenderResult{}, fmt.Errorf("render response decode: %w", err)
	}
	return result, nil
}

// mapRenderResult folds the collaborator's own statuses into the shared
// extraction taxonomy.
func mapRenderResult(res RenderResult) PageResult {
	switch res.Status {
	case "ok":
		return PageResult{Class: HeadlessOK, Text: res.Text}
	case "no_items":
		return PageResult{Class: HeadlessNoItems}
	default:
		return PageResult{Class: ParseError}
	}
}
