package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Threadmark/internal/core/embeds"
	"Threadmark/internal/core/posts"
	"Threadmark/internal/core/render"
	"Threadmark/internal/core/sites"
)

func newTestRouter(t *testing.T) (chi.Router, *embeds.Cache) {
	t.Helper()
	reg, err := sites.Load("", nil)
	require.NoError(t, err)
	site, err := reg.Lookup("vichan")
	require.NoError(t, err)
	cache, err := embeds.NewCache(8, nil, nil)
	require.NoError(t, err)

	r := chi.NewRouter()
	RegisterPostRoutes(r, render.NewService(site, posts.NewMemoryStore(0), nil, nil))
	RegisterHealthRoutes(r, HealthSources{
		Cache:     cache,
		Clients:   func() int { return 3 },
		Embedders: embeds.NewRegistry(embeds.DefaultEmbedders(embeds.ProviderOptions{})...),
		Site:      site.Name(),
	})
	return r, cache
}

func TestPostRoutes_RenderThenGet(t *testing.T) {
	r, _ := newTestRouter(t)

	body := `{"board":"b","threadNo":1,"no":2,"markup":"<b>bold</b> text"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/posts/render", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/posts/b/2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap posts.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, "bold text", snap.Text)
	require.NotEmpty(t, snap.Segments)
	assert.True(t, snap.Segments[0].Style.Bold)

	// No coordinator: re-embedding reports nothing started
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/posts/b/2/embed", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out render.EmbedOutcome
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.False(t, out.Started)
}

func TestHealthRoute(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "vichan", body["site"])
	assert.Equal(t, float64(3), body["liveClients"])
	assert.Contains(t, body, "cache")
	assert.NotContains(t, body, "breakers")
	assert.Contains(t, body["embedders"], "vocaroo")
}

func TestThreadRoute(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, body := range []string{
		`{"board":"b","no":5,"markup":"op"}`,
		`{"board":"b","threadNo":5,"no":6,"markup":"reply"}`,
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/posts/render", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/threads/b/5", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Posts []posts.Snapshot `json:"posts"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Posts, 2)
	assert.Equal(t, "op", body.Posts[0].Text)
	assert.Equal(t, "reply", body.Posts[1].Text)
}
