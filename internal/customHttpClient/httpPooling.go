package customHttpClient

import (
	"net/http"

	"github.com/svemana/KnowledgeAPI/internal/config"
)

var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// Transport returns the shared pooled transport. The fetcher and the render
// client reuse connections through it instead of growing their own pools.
func Transport() *http.Transport {
	return customTransport
}
