package embeds

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// RateLimitedTransport is the shared embed transport. It paces requests per
// registrable domain, so youtube.com and www.youtube.com share one budget,
// and stamps the configured User-Agent.
type RateLimitedTransport struct {
	client    *http.Client
	limiters  map[string]*rate.Limiter
	userAgent string
	limit     rate.Limit
	burst     int
	mu        sync.Mutex
}

// NewTransport wraps client. A zero perSecond disables pacing.
func NewTransport(client *http.Client, perSecond float64, burst int, userAgent string) *RateLimitedTransport {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedTransport{
		client:    client,
		limiters:  make(map[string]*rate.Limiter),
		userAgent: userAgent,
		limit:     limit,
		burst:     burst,
	}
}

// Do waits for the host's limiter and performs the request. Waiting honours
// the request context, so a request timeout also bounds time spent queued.
func (t *RateLimitedTransport) Do(req *http.Request) (*http.Response, error) {
	if err := t.limiter(req.URL.Hostname()).Wait(req.Context()); err != nil {
		return nil, err
	}
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.client.Do(req)
}

func (t *RateLimitedTransport) limiter(host string) *rate.Limiter {
	key := registrableDomain(host)

	t.mu.Lock()
	defer t.mu.Unlock()

	lim, ok := t.limiters[key]
	if !ok {
		lim = rate.NewLimiter(t.limit, t.burst)
		t.limiters[key] = lim
	}
	return lim
}

// registrableDomain returns the eTLD+1 of host, e.g. "bbc.co.uk" for
// "www.bbc.co.uk". IPs, localhost and unknown suffixes fall back to the
// host itself.
func registrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if net.ParseIP(host) != nil {
		return host
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return registrable
}
