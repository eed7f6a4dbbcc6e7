package embeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		host     string
		expected string
	}{
		{host: "www.youtube.com", expected: "youtube.com"},
		{host: "youtube.com", expected: "youtube.com"},
		{host: "m.youtube.com.", expected: "youtube.com"},
		{host: "news.bbc.co.uk", expected: "bbc.co.uk"},
		{host: "artist.bandcamp.com", expected: "bandcamp.com"},
		{host: "127.0.0.1", expected: "127.0.0.1"},
		{host: "localhost", expected: "localhost"},
		{host: "WWW.Example.COM", expected: "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.expected, registrableDomain(tt.host))
		})
	}
}

func TestTransport_SetsUserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	tr := NewTransport(testClient(), 0, 0, "Threadmark/1.0")
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := tr.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Threadmark/1.0", got)
}

func TestTransport_SharesLimiterAcrossSubdomains(t *testing.T) {
	tr := NewTransport(testClient(), 1, 1, "")
	assert.Same(t, tr.limiter("www.youtube.com"), tr.limiter("m.youtube.com"))
	assert.NotSame(t, tr.limiter("youtube.com"), tr.limiter("vimeo.com"))
}

func TestTransport_WaitHonoursContext(t *testing.T) {
	tr := NewTransport(testClient(), 0.001, 1, "")

	// Drain the single token so the next request has to queue
	require.True(t, tr.limiter("slow.test").Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://slow.test/", nil)
	require.NoError(t, err)

	_, err = tr.Do(req)
	assert.Error(t, err)
}
