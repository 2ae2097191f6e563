package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProber checks that a target answers a GET with a 2xx status.
type HTTPProber struct {
	client *http.Client
}

func NewHTTPProber(timeout time.Duration) *HTTPProber {
	return &HTTPProber{client: &http.Client{Timeout: timeout}}
}

func (p *HTTPProber) Probe(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachableTarget, err)
	}
	req.Header.Set("User-Agent", "scissor-link-check/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachableTarget, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrUnreachableTarget, resp.StatusCode)
	}

	return nil
}

// NopProber accepts every target.
type NopProber struct{}

func (NopProber) Probe(context.Context, string) error {
	return nil
}
