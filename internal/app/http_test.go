package app

import (
	"net/http"
	"reflect"
	"testing"
)

func TestNewFetchHTTPClient_Config(t *testing.T) {
	c := newFetchHTTPClient(5)
	if c.Timeout != 0 {
		t.Fatalf("fetch client must rely on per-request contexts, got timeout %v", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected http.Transport")
	}
	if tr.MaxIdleConnsPerHost != 5 {
		t.Fatalf("expected pool sized to concurrency, got %d", tr.MaxIdleConnsPerHost)
	}
	// Ensure we didn't return the default client's transport
	if reflect.ValueOf(http.DefaultTransport).Pointer() == reflect.ValueOf(tr).Pointer() {
		t.Fatalf("transport should not be default")
	}
	if newSearchHTTPClient().Timeout == 0 {
		t.Fatalf("search client needs its own timeout")
	}
}
