package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"lms-edge/internal/metrics"
	"lms-edge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Proxy forwards requests to the backend service transparently: method,
// headers, cookies and body pass through; hop-by-hop and framing headers
// are normalized on both legs. Exactly one outbound call per inbound call,
// no retries - the browser owns retry semantics.
type Proxy struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string, timeout time.Duration) *Proxy {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Proxy{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
			// Redirects are relayed verbatim to the original caller,
			// never followed silently.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Options adjust a single forwarded request.
type Options struct {
	// PathOverride replaces the incoming path when an edge-facing route
	// name differs from the backend's route name.
	PathOverride string

	// Method overrides the incoming method.
	Method string

	// Body replaces the incoming body. Used by explicit request
	// transformations; the default is raw passthrough of the inbound
	// bytes, never a re-encode.
	Body []byte
}

// Hop-by-hop and framing request headers never forwarded upstream.
var skipRequestHeaders = map[string]struct{}{
	"Host":           {},
	"Connection":     {},
	"Content-Length": {},
}

// Framing response headers never copied back: the edge recomputes framing
// for the bytes actually sent, and relaying a compressed-length header over
// a decompressed body would desynchronize the client.
var skipResponseHeaders = map[string]struct{}{
	"Content-Length":   {},
	"Content-Encoding": {},
}

// Forward proxies the gin request to the backend and streams the response
// back. Every failure to reach the backend terminates as a 502 with a
// structured body; nothing hangs past the client timeout.
func (p *Proxy) Forward(c *gin.Context, opts Options) {
	r := c.Request

	path := r.URL.Path
	if opts.PathOverride != "" {
		path = opts.PathOverride
	}
	target := p.baseURL + path
	if q := r.URL.RawQuery; q != "" {
		target += "?" + q
	}

	method := r.Method
	if opts.Method != "" {
		method = opts.Method
	}

	var body io.Reader
	switch {
	case opts.Body != nil:
		body = bytes.NewReader(opts.Body)
	case method != http.MethodGet && method != http.MethodHead:
		body = r.Body
	}

	// The inbound request context backs the outbound call, so a client
	// abort cancels the backend work instead of orphaning it.
	req, err := http.NewRequestWithContext(r.Context(), method, target, body)
	if err != nil {
		badGateway(c, "invalid backend target")
		return
	}

	for name, values := range r.Header {
		if _, skip := skipRequestHeaders[http.CanonicalHeaderKey(name)]; skip {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	// Let the transport negotiate and transparently decode compression;
	// response framing is recomputed below either way.
	req.Header.Del("Accept-Encoding")

	// If the runtime stripped the raw Cookie header, rebuild it from the
	// parsed jar so cookie forwarding survives regardless of how headers
	// were normalized.
	if req.Header.Get("Cookie") == "" {
		if cookies := r.Cookies(); len(cookies) > 0 {
			parts := make([]string, 0, len(cookies))
			for _, ck := range cookies {
				parts = append(parts, ck.Name+"="+ck.Value)
			}
			req.Header.Set("Cookie", strings.Join(parts, "; "))
		}
	}
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		logger.FromGin(c).Warn("backend unreachable", "method", method, "path", path, "err", err)
		metrics.BackendUnreachable.Inc()
		badGateway(c, "backend unreachable")
		return
	}
	defer resp.Body.Close()

	header := c.Writer.Header()
	for name, values := range resp.Header {
		if _, skip := skipResponseHeaders[http.CanonicalHeaderKey(name)]; skip {
			continue
		}
		for _, v := range values {
			header.Add(name, v)
		}
	}

	metrics.ObserveProxyResponse(resp.StatusCode)
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		// Headers are already out; all we can do is stop streaming.
		logger.FromGin(c).Debug("response stream interrupted", "err", err)
	}
	c.Abort()
}

// Do issues one JSON request to the backend and returns the raw response
// for the caller to inspect. Used by handlers that mint tokens from the
// backend's answer instead of streaming it through (login). The caller
// owns resp.Body.
func (p *Proxy) Do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return p.client.Do(req)
}

// Reachable reports whether the backend answers at all. Used by the health
// endpoint; a bounded probe, not a health contract.
func (p *Proxy) Reachable(c *gin.Context) bool {
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodHead, p.baseURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

func badGateway(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
		"error":   "bad_gateway",
		"message": message,
	})
}
