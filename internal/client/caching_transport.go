package client

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// DefaultRevalidateAfter is how long a read stays fresh when the API sends no caching headers.
const DefaultRevalidateAfter = 10 * time.Second

// NewCache creates the read cache used by the caching transport.
// An empty cacheDir keeps the cache in memory.
func NewCache(cacheDir string) httpcache.Cache {
	if cacheDir == "" {
		return httpcache.NewMemoryCache()
	}

	// Use disk-based cache for persistence across CLI invocations
	return diskcache.New(cacheDir)
}

// newCachingTransport wraps next with an httpcache transport that serves repeat reads
// from cache within the revalidation window.
func newCachingTransport(cache httpcache.Cache, next http.RoundTripper, revalidateAfter time.Duration) http.RoundTripper {
	if revalidateAfter <= 0 {
		revalidateAfter = DefaultRevalidateAfter
	}

	return &httpcache.Transport{
		Cache:               cache,
		MarkCachedResponses: true,
		Transport: &freshnessTransport{
			next:   next,
			maxAge: revalidateAfter,
		},
	}
}

// freshnessTransport gives successful reads a max-age when the API did not send one and
// marks every read as varying by Authorization, so a cached response is only served to
// the credentials it was fetched with.
type freshnessTransport struct {
	next   http.RoundTripper
	maxAge time.Duration
}

func (t *freshnessTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if req.Method != http.MethodGet {
		return resp, nil
	}

	if !varies(resp.Header, "Authorization") {
		resp.Header.Add("Vary", "Authorization")
	}

	if resp.StatusCode == http.StatusOK &&
		resp.Header.Get("Cache-Control") == "" &&
		resp.Header.Get("Expires") == "" {
		resp.Header.Set("Cache-Control", fmt.Sprintf("private, max-age=%d", int(t.maxAge.Seconds())))
	}

	return resp, nil
}

func varies(h http.Header, name string) bool {
	for _, v := range h.Values("Vary") {
		for _, field := range strings.Split(v, ",") {
			if http.CanonicalHeaderKey(strings.TrimSpace(field)) == name {
				return true
			}
		}
	}
	return false
}

// fromCache reports whether the response was served by the cache.
func fromCache(resp *http.Response) bool {
	return strings.TrimSpace(resp.Header.Get(httpcache.XFromCache)) == "1"
}
