// Package minter calls the external backend that mints claimed NFTs.
package minter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"github.com/samirrijal/geoquest/internal/core/domain"
	"github.com/samirrijal/geoquest/internal/core/ports"
	"github.com/samirrijal/geoquest/internal/pkg/metrics"
)

const mintPath = "/claim-quest-nft"

// Config configures the mint client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Rate    float64 // requests per second
	Burst   int
}

// Client implements ports.Minter over the backend's HTTP contract:
// POST {base}/claim-quest-nft {metadata_id, recipient} → {success, message}.
type Client struct {
	http    *fasthttp.Client
	url     string
	timeout time.Duration
	limiter *rate.Limiter
}

// New builds a Client. Outbound requests are throttled by a token bucket so
// bursts of committed claims do not overload the backend.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Client{
		http: &fasthttp.Client{
			Name:                "geoquest-minter",
			MaxConnsPerHost:     64,
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: time.Minute,
		},
		url:     strings.TrimRight(cfg.BaseURL, "/") + mintPath,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
	}
}

// Mint asks the backend to mint. A refusal (4xx or success=false) wraps
// domain.ErrMintRejected; transport errors and 5xx are returned as-is so the
// caller may retry.
func (c *Client) Mint(ctx context.Context, req ports.MintRequest) (*ports.MintReceipt, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("mint rate limit: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	freq := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(freq)
	defer fasthttp.ReleaseResponse(resp)

	freq.SetRequestURI(c.url)
	freq.Header.SetMethod(fasthttp.MethodPost)
	freq.Header.SetContentType("application/json")
	freq.SetBody(body)

	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < timeout {
			timeout = d
		}
	}

	start := time.Now()
	err = c.http.DoTimeout(freq, resp, timeout)
	metrics.MintDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MintRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("mint request: %w", err)
	}

	status := resp.StatusCode()
	var receipt ports.MintReceipt
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &receipt); err != nil && status < 300 {
			metrics.MintRequests.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("decode mint response: %w", err)
		}
	}

	switch {
	case status >= 500:
		metrics.MintRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("mint backend returned HTTP %d", status)
	case status >= 400:
		metrics.MintRequests.WithLabelValues("rejected").Inc()
		return &receipt, fmt.Errorf("%w: HTTP %d: %s", domain.ErrMintRejected, status, receipt.Message)
	case !receipt.Success:
		metrics.MintRequests.WithLabelValues("rejected").Inc()
		return &receipt, fmt.Errorf("%w: %s", domain.ErrMintRejected, receipt.Message)
	}

	metrics.MintRequests.WithLabelValues("ok").Inc()
	return &receipt, nil
}
