package pipeline

import (
	"net/http"
	"time"
)

// NewPooledHTTPClient builds the client each stage shares for its provider
// calls. The idle pool is sized to the stage's concurrency so per-chunk
// requests reuse warm connections instead of redialing.
func NewPooledHTTPClient(poolSize int, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          poolSize,
			MaxIdleConnsPerHost:   poolSize,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}
