package app

import (
	"net"
	"net/http"
	"time"
)

// newFetchHTTPClient returns an HTTP client sized for one wave of parallel
// fetches. It sets no client-wide timeout: every request is bounded by the
// per-request context the fetcher derives from the batch budget.
func newFetchHTTPClient(concurrency int) *http.Client {
	if concurrency <= 0 {
		concurrency = 1
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          4 * concurrency,
		MaxIdleConnsPerHost:   concurrency,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport}
}

// newSearchHTTPClient is used for provider queries, which are not covered by
// the batch budget.
func newSearchHTTPClient() *http.Client {
	c := newFetchHTTPClient(4)
	c.Timeout = 20 * time.Second
	return c
}
