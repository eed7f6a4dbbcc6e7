package embeds

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"Threadmark/internal/core/posts"
	"Threadmark/internal/core/richtext"
)

const (
	defaultFetchTimeout = 2500 * time.Millisecond
	defaultMaxBodySize  = 10 * 1024 * 1024
	defaultTitleLimit   = 100
)

// Coordinator runs embedding for posts: it collects the embeddable links of
// a post, resolves them concurrently through the cache or the network and,
// once every task has finished, rewrites the post in one critical section.
type Coordinator struct {
	registry  *Registry
	cache     *Cache
	transport Transport
	breaker   *circuitBreaker
	notifier  Notifier
	boards    func(code string) posts.Board
	logger    *slog.Logger
	flights   singleflight.Group
	running   sync.WaitGroup
	timeout   time.Duration
	maxBody   int64
	titleMax  int
	enabled   bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the per-request timeout for embed fetches
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = timeout
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithNotifier sets the receiver of post-changed notifications
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) {
		c.notifier = n
	}
}

// WithBoards sets the lookup for per-board feature flags
func WithBoards(lookup func(code string) posts.Board) Option {
	return func(c *Coordinator) {
		c.boards = lookup
	}
}

// WithTitleLimit caps titles at n grapheme clusters; 0 disables the cap
func WithTitleLimit(n int) Option {
	return func(c *Coordinator) {
		c.titleMax = n
	}
}

// WithMaxBodySize limits how much of a response body is read
func WithMaxBodySize(n int64) Option {
	return func(c *Coordinator) {
		c.maxBody = n
	}
}

// WithEnabled switches embedding on or off globally
func WithEnabled(enabled bool) Option {
	return func(c *Coordinator) {
		c.enabled = enabled
	}
}

// NewCoordinator creates a coordinator. Every board has embedding enabled
// and image links disabled unless WithBoards says otherwise.
func NewCoordinator(registry *Registry, cache *Cache, transport Transport, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry:  registry,
		cache:     cache,
		transport: transport,
		boards: func(code string) posts.Board {
			return posts.Board{Code: code, EmbedsEnabled: true}
		},
		logger:   slog.Default(),
		timeout:  defaultFetchTimeout,
		maxBody:  defaultMaxBodySize,
		titleMax: defaultTitleLimit,
		enabled:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = newCircuitBreaker(c.logger)
	return c
}

// Task is one URL of a batch. Cache hits are created already complete.
type Task struct {
	embedder Embedder
	result   *Result
	err      error
	done     chan struct{}

	URL      string   `json:"url"`
	Embedder string   `json:"embedder"`
	Literals []string `json:"literals"`
	Cached   bool     `json:"cached"`
}

func (t *Task) complete(res *Result, err error) {
	t.result, t.err = res, err
	close(t.done)
}

// Done is closed when the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Result waits for the task and returns its outcome.
func (t *Task) Result() (*Result, error) {
	<-t.done
	return t.result, t.err
}

// Batch is the set of tasks of one embedding run for one post.
type Batch struct {
	Post  *posts.Post
	Tasks []*Task
	done  chan struct{}
	ok    bool
}

// Done is closed once the run has committed or given up.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the run finishes and reports whether the post was
// updated and marked complete.
func (b *Batch) Wait() bool {
	<-b.done
	return b.ok
}

// candidate is a distinct embeddable URL of a post with the literal
// spellings it appears under.
type candidate struct {
	embedder Embedder
	key      string
	literals []string
}

// Embed starts an embedding run for post and returns its in-flight batch.
// It returns nil without touching the post when embedding is disabled
// globally or for the post's board, or when the post is already being
// embedded or complete. The run does not stop when ctx is cancelled; each
// request is bounded by the fetch timeout instead.
func (c *Coordinator) Embed(ctx context.Context, post *posts.Post) *Batch {
	if !c.enabled || post == nil {
		return nil
	}
	board := c.boards(post.Board)
	embedLinks := c.registry.ShouldEmbed(board)
	if !embedLinks && !board.ImageLinks {
		return nil
	}
	if !post.TryBeginEmbed() {
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	cands, images := c.candidates(post.References(), board, embedLinks)

	b := &Batch{Post: post, done: make(chan struct{})}
	for _, cand := range cands {
		t := &Task{
			embedder: cand.embedder,
			done:     make(chan struct{}),
			URL:      cand.key,
			Embedder: cand.embedder.Name(),
			Literals: cand.literals,
		}
		if res, ok := c.cache.Get(ctx, cand.key); ok {
			t.Cached = true
			t.complete(&res, nil)
		}
		b.Tasks = append(b.Tasks, t)
	}

	c.running.Add(1)
	go c.run(ctx, b, images)
	return b
}

// Wait blocks until every run started so far has finished.
func (c *Coordinator) Wait() {
	c.running.Wait()
}

// BreakerStats returns the circuit state of each embedder that has failed.
func (c *Coordinator) BreakerStats() map[string]BreakerStats {
	return c.breaker.stats()
}

func (c *Coordinator) candidates(refs []richtext.AnchoredReference, board posts.Board, embedLinks bool) ([]*candidate, []posts.InlineImage) {
	var (
		order  []*candidate
		byKey  = make(map[string]*candidate)
		images []posts.InlineImage
		seen   = make(map[string]bool)
	)

	for _, r := range refs {
		// Only links displayed as their own URL can be spliced
		if r.Kind != richtext.KindLink || r.Origin == richtext.OriginEmbed || r.Text != r.URL {
			continue
		}
		key := normalizeURL(r.URL)
		if key == "" {
			continue
		}

		if board.ImageLinks && !seen[key] {
			seen[key] = true
			if img, ok := detectImage(key); ok {
				images = append(images, img)
			}
		}
		if !embedLinks {
			continue
		}

		if cand, ok := byKey[key]; ok {
			if !slices.Contains(cand.literals, r.URL) {
				cand.literals = append(cand.literals, r.URL)
			}
			continue
		}
		e := c.registry.Owner(key)
		if e == nil {
			continue
		}
		cand := &candidate{embedder: e, key: key, literals: []string{r.URL}}
		byKey[key] = cand
		order = append(order, cand)
	}
	return order, images
}

func (c *Coordinator) run(ctx context.Context, b *Batch, images []posts.InlineImage) {
	defer c.running.Done()

	var g errgroup.Group
	for _, t := range b.Tasks {
		if t.Cached {
			continue
		}
		g.Go(func() error {
			t.complete(c.resolveShared(ctx, t.embedder, t.URL))
			return nil
		})
	}
	for i := range images {
		g.Go(func() error {
			c.lookupSize(ctx, &images[i])
			return nil
		})
	}
	_ = g.Wait()

	post := b.Post
	ok := true
	for _, t := range b.Tasks {
		if t.err != nil {
			ok = false
			c.logger.Info("[EMBED] Fetch failed, link left unembedded",
				"post", post.Key.String(), "url", t.URL, "embedder", t.Embedder, "error", t.err)
		}
	}

	changed := false
	if ok {
		err := post.Commit(func(buf *richtext.Buffer) ([]posts.InlineImage, error) {
			return c.apply(buf, b.Tasks, images)
		})
		if err != nil {
			ok = false
			c.logger.Error("[EMBED] Failed to splice embed results", "post", post.Key.String(), "error", err)
		} else {
			changed = len(b.Tasks) > 0 || len(images) > 0
		}
	}

	post.EndEmbed(ok)
	if changed && c.notifier != nil {
		c.notifier.PostChanged(post)
	}

	b.ok = ok
	close(b.done)
}

// apply splices every task's result into buf and returns the images to
// attach: detected media links first, then embedder previews.
func (c *Coordinator) apply(buf *richtext.Buffer, tasks []*Task, images []posts.InlineImage) ([]posts.InlineImage, error) {
	var reps []replacement
	out := slices.Clone(images)
	for _, t := range tasks {
		for _, lit := range t.Literals {
			reps = append(reps, replacement{literal: lit, icon: t.embedder.Icon(), result: *t.result})
		}
		if img := t.result.ExtraImage; img != nil {
			if !slices.ContainsFunc(out, func(have posts.InlineImage) bool { return have.URL == img.URL }) {
				out = append(out, *img)
			}
		}
	}

	replaced, err := splice(buf, reps)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("[EMBED] Spliced embed results", "urls", len(replaced), "images", len(out))
	return out, nil
}

// resolveShared fetches key once across all concurrent posts and caches the
// result.
func (c *Coordinator) resolveShared(ctx context.Context, e Embedder, key string) (*Result, error) {
	v, err, _ := c.flights.Do(key, func() (any, error) {
		if res, ok := c.cache.Peek(key); ok {
			return &res, nil
		}
		res, err := c.fetch(ctx, e, key)
		if err != nil {
			return nil, err
		}
		c.cache.Put(ctx, key, *res)
		c.logger.Debug("[EMBED] Embedded link", "url", key, "embedder", e.Name(), "title", res.Title)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (c *Coordinator) fetch(ctx context.Context, e Embedder, rawURL string) (*Result, error) {
	if err := c.breaker.canAttempt(e.Name()); err != nil {
		return nil, err
	}
	res, err := c.resolve(ctx, e, rawURL)
	if err != nil {
		c.breaker.recordFailure(e.Name(), err)
		return nil, err
	}
	c.breaker.recordSuccess(e.Name())
	return res, nil
}

func (c *Coordinator) resolve(ctx context.Context, e Embedder, rawURL string) (*Result, error) {
	req, err := e.BuildRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	var resp *Response
	if req != nil {
		if resp, err = c.do(req); err != nil {
			return nil, err
		}
	}

	res, err := e.Parse(rawURL, resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", e.Name(), err)
	}
	res.Title = clampTitle(strings.TrimSpace(res.Title), c.titleMax)
	if res.Title == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTitle, rawURL)
	}

	if res.Duration == nil {
		dreq, err := e.DurationRequest(ctx, rawURL, res)
		if err != nil {
			return nil, err
		}
		if dreq != nil {
			dresp, err := c.do(dreq)
			if err != nil {
				return nil, fmt.Errorf("duration lookup failed: %w", err)
			}
			d, err := e.ParseDuration(dresp)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s duration: %w", e.Name(), err)
			}
			res.Duration = &d
		}
	}
	return res, nil
}

// do performs req under the fetch timeout and reads the whole body.
func (c *Coordinator) do(req *http.Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), c.timeout)
	defer cancel()
	req = req.WithContext(ctx)

	resp, err := c.transport.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, URL: req.URL.Scheme + "://" + req.URL.Host + req.URL.Path}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, ErrResponseTooLarge
	}

	return &Response{URL: req.URL, Header: resp.Header, Body: body, StatusCode: resp.StatusCode}, nil
}
