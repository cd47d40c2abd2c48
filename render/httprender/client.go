// Package httprender implements render.Renderer against an image-synthesis
// service reachable over HTTP.
//
// One Render call is one POST of a JSON body
//
//	{"prompt": "...", "latents": ["<base64 latent>", ...]}
//
// where every latent is in the latent package's binary encoding. The service
// answers with
//
//	{"images": [{"data": "<base64>", "mime_type": "image/png"}, ...]}
//
// in the same order. Requests are throttled by a token bucket and never
// retried: a failed render is surfaced to the caller as is.
package httprender

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/hupe1980/evolatent/latent"
	"github.com/hupe1980/evolatent/render"
)

var _ render.Renderer = (*Client)(nil)

type request struct {
	Prompt  string   `json:"prompt"`
	Latents [][]byte `json:"latents"`
}

type response struct {
	Images []struct {
		Data     []byte `json:"data"`
		MimeType string `json:"mime_type"`
	} `json:"images"`
}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httprender: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client is a rate-limited HTTP renderer.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
	header   http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout sets the timeout of the default *http.Client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http.Timeout = d }
}

// WithRateLimit allows rps requests per second with the given burst.
// rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(cl *Client) {
		if rps <= 0 {
			cl.limiter = nil
			return
		}
		cl.limiter = rate.NewLimiter(rate.Limit(rps), max(1, burst))
	}
}

// WithHeader adds a header to every request (e.g. Authorization).
func WithHeader(key, value string) Option {
	return func(cl *Client) { cl.header.Add(key, value) }
}

// New returns a Client posting to endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 2 * time.Minute},
		limiter:  rate.NewLimiter(rate.Limit(1), 1),
		header:   make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Render implements render.Renderer.
func (c *Client) Render(ctx context.Context, prompt string, pop latent.Population) ([]render.Result, error) {
	req := request{Prompt: prompt, Latents: make([][]byte, len(pop))}
	for i, v := range pop {
		enc, err := latent.Encode(v, latent.CompressionNone)
		if err != nil {
			return nil, err
		}
		req.Latents[i] = enc
	}
	body, err := gojson.Marshal(req)
	if err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header = c.header.Clone()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var out response
	if err := gojson.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("httprender: decode response: %w", err)
	}
	if len(out.Images) != len(pop) {
		return nil, fmt.Errorf("httprender: got %d images for %d latents", len(out.Images), len(pop))
	}

	results := make([]render.Result, len(pop))
	for i, img := range out.Images {
		results[i] = render.Result{
			Image:  render.Image{Data: img.Data, MimeType: img.MimeType, Ext: extFor(img.MimeType)},
			Latent: pop[i],
		}
	}
	return results, nil
}

func extFor(mimeType string) string {
	switch mimeType {
	case "", "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return "bin"
}
