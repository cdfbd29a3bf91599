package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/pubfilter/internal/cache"
	"github.com/hyperifyio/pubfilter/internal/pubdate"
)

// DefaultUserAgent identifies the fetcher to remote servers.
const DefaultUserAgent = "pubfilter/1.0 (+https://github.com/hyperifyio/pubfilter; publication-date check)"

// DefaultMaxBodyBytes caps how much of a response body is read.
const DefaultMaxBodyBytes = 8 << 20

var (
	ErrUnsupportedScheme      = errors.New("unsupported URL scheme")
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrStatus                 = errors.New("unexpected status")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("unexpected status: %d", e.Code) }

func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// Response is one retrieved document, already classified.
type Response struct {
	URL         string
	ContentType string
	Kind        pubdate.Kind
	Body        []byte
	FromCache   bool
}

// Document converts the response into parser input.
func (r Response) Document() pubdate.Document {
	return pubdate.Document{Kind: r.Kind, URL: r.URL, Body: r.Body}
}

// Client performs single bounded GETs. It never retries: one call issues at
// most one request, whose lifetime is capped by the timeout given to Fetch.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// Optional on-disk cache. Cached entries are revalidated with
	// If-None-Match/If-Modified-Since on the same single request.
	Cache *cache.DocumentCache
	// Optional per-host politeness gate, waited on inside the request timeout.
	Limiter *HostLimiter

	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
	// MaxBodyBytes caps the bytes read from a body. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

func (c *Client) httpClient() *http.Client {
	base := http.Client{}
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base = *c.HTTPClient
	}
	base.CheckRedirect = c.checkRedirectFunc()
	return &base
}

// IsPDFURL reports whether the URL path ends in .pdf.
func IsPDFURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.HasSuffix(strings.ToLower(raw), ".pdf")
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

// Fetch retrieves rawURL within timeout. A .pdf path is classified as PDF
// before the response arrives; otherwise an application/pdf content type
// reclassifies the document. Non-2xx statuses, timeouts and transport errors
// are returned as errors.
func (c *Client) Fetch(ctx context.Context, rawURL string, timeout time.Duration) (Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("new request: %w", err)
	}
	if !isHTTPScheme(req.URL) {
		return Response{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, rawURL)
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.5")

	cached, cachedBody, haveCached := c.Cache.Lookup(rawURL)
	if haveCached {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx, req.URL.Host); err != nil {
			return Response{}, fmt.Errorf("host limiter: %w", err)
		}
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && haveCached {
		return classify(rawURL, cached.ContentType, cachedBody, true)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &StatusError{Code: resp.StatusCode}
	}

	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return Response{}, fmt.Errorf("read body: %w", err)
	}
	ct := resp.Header.Get("Content-Type")
	out, err := classify(rawURL, ct, body, false)
	if err != nil {
		return Response{}, err
	}
	if c.Cache != nil {
		_ = c.Cache.Save(cache.Entry{
			URL:          rawURL,
			ContentType:  ct,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}, body)
	}
	return out, nil
}

func classify(rawURL, contentType string, body []byte, fromCache bool) (Response, error) {
	out := Response{URL: rawURL, ContentType: contentType, Body: body, FromCache: fromCache}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case IsPDFURL(rawURL), strings.HasPrefix(ct, "application/pdf"), strings.HasPrefix(ct, "application/x-pdf"):
		out.Kind = pubdate.KindPDF
		return out, nil
	case isMarkupContentType(ct):
		out.Kind = pubdate.KindMarkup
		out.Body = toUTF8(body, contentType)
		return out, nil
	default:
		return Response{}, fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
	}
}

func isMarkupContentType(ct string) bool {
	if ct == "" {
		return true
	}
	for _, prefix := range []string{"text/html", "application/xhtml+xml", "text/xml", "application/xml", "text/plain"} {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}

// toUTF8 transcodes markup using the declared or sniffed charset. Bodies that
// cannot be decoded are returned unchanged.
func toUTF8(body []byte, contentType string) []byte {
	r, err := charset.NewReader(strings.NewReader(string(body)), contentType)
	if err != nil {
		return body
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return out
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
