package embeds

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Threadmark/internal/core/markup"
	"Threadmark/internal/core/posts"
	"Threadmark/internal/core/richtext"
)

type harness struct {
	coord    *Coordinator
	cache    *Cache
	server   *countingServer
	notifier *recordingNotifier
	parser   *markup.Parser
}

func titleHandler(titles map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		title, ok := titles[target]
		if !ok {
			http.Error(w, "unknown", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"title": title})
	}
}

func newHarness(t *testing.T, handler http.HandlerFunc, opts ...Option) *harness {
	t.Helper()
	server := newCountingServer(t, handler)
	cache, err := NewCache(500, nil, slog.Default())
	require.NoError(t, err)

	registry := NewRegistry(
		jsonDefinition("example", `^https?://(?:www\.)?example\.com(?:/\S*)?$`, server.URL),
		jsonDefinition("video", `^https?://video\.test/\S+$`, server.URL),
	)
	notifier := &recordingNotifier{}
	all := append([]Option{WithNotifier(notifier), WithTimeout(time.Second)}, opts...)
	coord := NewCoordinator(registry, cache, NewTransport(testClient(), 0, 1, "test"), all...)

	patterns := markup.DefaultPatterns()
	patterns.Quote = regexp.MustCompile(`.*#(\d+)`)
	parser := markup.NewParser(markup.NewRuleTable(markup.DefaultRules()...), markup.NewResolver(patterns))

	return &harness{coord: coord, cache: cache, server: server, notifier: notifier, parser: parser}
}

func (h *harness) post(no int64, raw string) *posts.Post {
	key := posts.Key{Board: "g", No: no}
	buf, _ := h.parser.Parse(raw, markup.Context{Board: "g", ThreadNo: 1, PostNo: no})
	return posts.New(key, 1, buf)
}

func compositeCount(buf *richtext.Buffer) int {
	n := 0
	for _, seg := range buf.Segments() {
		if seg.Icon != "" {
			n++
		}
	}
	return n
}

func linkRefs(refs []richtext.AnchoredReference) []richtext.AnchoredReference {
	var out []richtext.AnchoredReference
	for _, r := range refs {
		if r.Kind == richtext.KindLink {
			out = append(out, r)
		}
	}
	return out
}

func TestEmbed_QuoteAndEmbeddedLink(t *testing.T) {
	h := newHarness(t, titleHandler(map[string]string{"http://example.com": "Example Site"}))
	p := h.post(2, `<a href="#p55">&gt;&gt;55</a> see http://example.com`)

	batch := h.coord.Embed(context.Background(), p)
	require.NotNil(t, batch)
	require.True(t, batch.Wait())

	assert.Equal(t, ">>55 see "+richtext.IconGlyph+"Example Site", p.Buffer().String())
	assert.Equal(t, posts.EmbedComplete, p.Status())

	refs := p.References()
	require.Len(t, refs, 2)
	assert.Equal(t, richtext.KindQuote, refs[0].Kind)
	assert.Equal(t, int64(55), refs[0].PostNo)
	assert.Equal(t, ">>55", refs[0].Text)

	links := linkRefs(refs)
	require.Len(t, links, 1)
	assert.Equal(t, "http://example.com", links[0].URL)
	assert.Equal(t, richtext.OriginEmbed, links[0].Origin)
	assert.Equal(t, richtext.IconGlyph+"Example Site", links[0].Text)

	segs := p.Buffer().Segments()
	assert.Equal(t, "example.png", segs[len(segs)-2].Icon)
	assert.Equal(t, 1, h.notifier.count())
}

func TestEmbed_TimeoutLeavesPostUnchanged(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}, WithTimeout(50*time.Millisecond))
	p := h.post(2, `<a href="#p55">&gt;&gt;55</a> see http://example.com`)
	before := p.Buffer().String()

	batch := h.coord.Embed(context.Background(), p)
	require.NotNil(t, batch)
	assert.False(t, batch.Wait())

	assert.Equal(t, before, p.Buffer().String())
	assert.Equal(t, posts.EmbedNotStarted, p.Status())

	links := linkRefs(p.References())
	require.Len(t, links, 1)
	assert.Equal(t, richtext.OriginAutolink, links[0].Origin)
	assert.Equal(t, "http://example.com", links[0].Text)

	_, err := batch.Tasks[0].Result()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, h.notifier.count())
}

func TestEmbed_NoopUnlessNotStarted(t *testing.T) {
	h := newHarness(t, titleHandler(map[string]string{"http://example.com": "Example Site"}))

	complete := h.post(2, `http://example.com`)
	require.True(t, h.coord.Embed(context.Background(), complete).Wait())
	snapshot := complete.Snapshot()

	assert.Nil(t, h.coord.Embed(context.Background(), complete))
	assert.Equal(t, snapshot, complete.Snapshot())

	busy := h.post(3, `http://example.com`)
	require.True(t, busy.TryBeginEmbed())
	assert.Nil(t, h.coord.Embed(context.Background(), busy))
	assert.Equal(t, "http://example.com", busy.Buffer().String())
	assert.Equal(t, posts.EmbedInProgress, busy.Status())
}

func TestEmbed_ConcurrentTriggersAdmitOne(t *testing.T) {
	h := newHarness(t, titleHandler(map[string]string{"http://example.com": "Example Site"}))
	p := h.post(2, `http://example.com`)

	var (
		mu      sync.Mutex
		batches []*Batch
		wg      sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b := h.coord.Embed(context.Background(), p); b != nil {
				mu.Lock()
				batches = append(batches, b)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, batches, 1)
	require.True(t, batches[0].Wait())
	assert.Equal(t, 1, compositeCount(p.Buffer()))
}

func TestEmbed_RepeatedURLsEachReplaced(t *testing.T) {
	h := newHarness(t, titleHandler(map[string]string{
		"http://example.com":   "Example Site",
		"https://video.test/1": "First Video",
	}))
	p := h.post(2, `http://example.com and https://video.test/1<br>again http://example.com`)

	batch := h.coord.Embed(context.Background(), p)
	require.NotNil(t, batch)
	require.Len(t, batch.Tasks, 2, "duplicate URLs collapse to one task")
	require.True(t, batch.Wait())

	buf := p.Buffer()
	assert.Equal(t, 3, compositeCount(buf))
	assert.Equal(t,
		richtext.IconGlyph+"Example Site and "+richtext.IconGlyph+"First Video\nagain "+richtext.IconGlyph+"Example Site",
		buf.String())
	assert.Equal(t, 1, h.server.count("http://example.com"))

	for _, r := range p.References() {
		assert.Equal(t, richtext.OriginEmbed, r.Origin)
		assert.Equal(t, r.Text, buf.String()[r.Start:r.End], "reference offsets follow the rewritten text")
	}
}

func TestEmbed_OneFailureRevertsWholeBatch(t *testing.T) {
	h := newHarness(t, titleHandler(map[string]string{"http://example.com": "Example Site"}))
	p := h.post(2, `http://example.com https://video.test/missing`)
	before := p.Snapshot()

	batch := h.coord.Embed(context.Background(), p)
	require.NotNil(t, batch)
	assert.False(t, batch.Wait())

	after := p.Snapshot()
	assert.Equal(t, before.Text, after.Text)
	assert.Equal(t, before.References, after.References)
	assert.Empty(t, after.Images)
	assert.Equal(t, posts.EmbedNotStarted, p.Status())

	var statusErr *StatusError
	_, err := batch.Tasks[1].Result()
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)

	// The successful sibling is cached for the retry
	_, cached := h.cache.Peek("http://example.com")
	assert.True(t, cached)
}

func TestEmbed_SecondPostUsesCache(t *testing.T) {
	h := newHarness(t, titleHandler(map[string]string{"http://example.com": "Example Site"}))

	first := h.post(2, `http://example.com`)
	require.True(t, h.coord.Embed(context.Background(), first).Wait())

	second := h.post(3, `look: http://example.com`)
	batch := h.coord.Embed(context.Background(), second)
	require.NotNil(t, batch)
	require.Len(t, batch.Tasks, 1)
	assert.True(t, batch.Tasks[0].Cached)
	require.True(t, batch.Wait())

	assert.Equal(t, 1, h.server.count("http://example.com"))
	assert.Equal(t, "look: "+richtext.IconGlyph+"Example Site", second.Buffer().String())
}

func TestEmbed_AnchorAndAutolinkReconcileToEmbed(t *testing.T) {
	h := newHarness(t, titleHandler(map[string]string{"https://video.test/x": "Clip"}))
	p := h.post(2, `<a href="https://video.test/x">https://video.test/x</a>`)

	before := linkRefs(p.References())
	require.Len(t, before, 1)
	assert.Equal(t, richtext.OriginMarkup, before[0].Origin)

	require.True(t, h.coord.Embed(context.Background(), p).Wait())

	after := linkRefs(p.References())
	require.Len(t, after, 1)
	assert.Equal(t, richtext.OriginEmbed, after[0].Origin)
	assert.Equal(t, "https://video.test/x", after[0].URL)
}

func TestEmbed_AnchorPlusAutolinkEachBecomeEmbeds(t *testing.T) {
	h := newHarness(t, titleHandler(map[string]string{"https://video.test/x": "Clip"}))
	p := h.post(2, `<a href="https://video.test/x">https://video.test/x</a> and https://video.test/x`)

	before := linkRefs(p.References())
	require.Len(t, before, 2)
	assert.Equal(t, richtext.OriginMarkup, before[0].Origin)
	assert.Equal(t, richtext.OriginAutolink, before[1].Origin)

	batch := h.coord.Embed(context.Background(), p)
	require.NotNil(t, batch)
	require.Len(t, batch.Tasks, 1)
	require.True(t, batch.Wait())

	assert.Equal(t, 1, h.server.count("https://video.test/x"))
	assert.Equal(t, richtext.IconGlyph+"Clip and "+richtext.IconGlyph+"Clip", p.Buffer().String())

	// One embed reference per occurrence; no markup or autolink copy remains
	after := linkRefs(p.References())
	require.Len(t, after, 2)
	for _, r := range after {
		assert.Equal(t, richtext.OriginEmbed, r.Origin)
		assert.Equal(t, "https://video.test/x", r.URL)
	}
	segs := p.Buffer().Segments()
	require.Len(t, segs, 5)
	assert.NotSame(t, segs[0].Ref, segs[3].Ref)
}

func TestEmbed_DurationSecondRoundTrip(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/duration" {
			_, _ = w.Write([]byte(`{"items":[{"contentDetails":{"duration":"PT1M2S"}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"title":"Clip"}`))
	})

	def := jsonDefinition("clip", `^https://clip\.test/(\w+)$`, h.server.URL)
	def.Duration = YouTube(Endpoints{YouTubeData: h.server.URL + "/duration"}, "key").Duration
	h.coord.registry = NewRegistry(def)

	p := h.post(2, `https://clip.test/abc`)
	require.True(t, h.coord.Embed(context.Background(), p).Wait())

	assert.Equal(t, richtext.IconGlyph+"Clip [1:02]", p.Buffer().String())
}

func TestEmbed_ImageLinksAttachedWithSize(t *testing.T) {
	server := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "2048")
			return
		}
		http.NotFound(w, r)
	})
	h := newHarness(t, titleHandler(nil), WithBoards(func(code string) posts.Board {
		return posts.Board{Code: code, ImageLinks: true}
	}))

	imageURL := server.URL + "/files/cat.PNG"
	p := h.post(2, imageURL+" twice "+imageURL)

	batch := h.coord.Embed(context.Background(), p)
	require.NotNil(t, batch)
	assert.Empty(t, batch.Tasks)
	require.True(t, batch.Wait())

	images := p.Images()
	require.Len(t, images, 1)
	assert.Equal(t, "cat", images[0].Filename)
	assert.Equal(t, "png", images[0].Extension)
	assert.Equal(t, int64(2048), images[0].Size)
	assert.True(t, images[0].Spoiler)
	assert.Equal(t, imageURL, images[0].ThumbnailURL)
	assert.Equal(t, posts.EmbedComplete, p.Status())
}

func TestEmbed_Disabled(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "globally", opts: []Option{WithEnabled(false)}},
		{name: "board without embeds or image links", opts: []Option{WithBoards(func(code string) posts.Board {
			return posts.Board{Code: code}
		})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, titleHandler(nil), tt.opts...)
			p := h.post(2, `http://example.com`)

			assert.Nil(t, h.coord.Embed(context.Background(), p))
			assert.Equal(t, posts.EmbedNotStarted, p.Status())
		})
	}
}

func TestEmbed_NothingToEmbedCompletes(t *testing.T) {
	h := newHarness(t, titleHandler(nil))
	p := h.post(2, `plain text and http://unclaimed.test/page`)

	batch := h.coord.Embed(context.Background(), p)
	require.NotNil(t, batch)
	assert.Empty(t, batch.Tasks)
	assert.True(t, batch.Wait())
	assert.Equal(t, posts.EmbedComplete, p.Status())
	assert.Zero(t, h.notifier.count())
}

func TestEmbed_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 3; i++ {
		p := h.post(int64(i+2), `http://example.com`)
		assert.False(t, h.coord.Embed(context.Background(), p).Wait())
	}

	p := h.post(10, `http://example.com`)
	batch := h.coord.Embed(context.Background(), p)
	require.False(t, batch.Wait())
	_, err := batch.Tasks[0].Result()
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.Equal(t, 3, h.server.count("http://example.com"))
	assert.Equal(t, "open", h.coord.BreakerStats()["example"].State)
}

func TestEmbed_TitleClampedAndRequired(t *testing.T) {
	long := strings.Repeat("ab", 80)
	h := newHarness(t, titleHandler(map[string]string{
		"http://example.com":   long,
		"https://video.test/e": "   ",
	}), WithTitleLimit(10))

	p := h.post(2, `http://example.com`)
	require.True(t, h.coord.Embed(context.Background(), p).Wait())
	assert.Equal(t, richtext.IconGlyph+"ababababa…", p.Buffer().String())

	empty := h.post(3, `https://video.test/e`)
	batch := h.coord.Embed(context.Background(), empty)
	require.False(t, batch.Wait())
	_, err := batch.Tasks[0].Result()
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestEmbed_CoordinatorWaitDrainsRuns(t *testing.T) {
	h := newHarness(t, titleHandler(map[string]string{"http://example.com": "Example Site"}))
	p := h.post(2, `http://example.com`)

	batch := h.coord.Embed(context.Background(), p)
	require.NotNil(t, batch)
	h.coord.Wait()

	select {
	case <-batch.Done():
	default:
		t.Fatal("batch should be finished after Wait")
	}
}
