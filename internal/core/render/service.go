// Package render ties a site profile, the post store and the embedding
// coordinator together behind one service.
package render

import (
	"context"
	"fmt"
	"log/slog"

	"Threadmark/internal/core/embeds"
	"Threadmark/internal/core/posts"
	"Threadmark/internal/core/sites"
)

type renderService struct {
	site        *sites.Site
	store       posts.Store
	coordinator *embeds.Coordinator
	logger      *slog.Logger
}

// NewService creates a render service. A nil coordinator disables
// embedding.
func NewService(site *sites.Site, store posts.Store, coordinator *embeds.Coordinator, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &renderService{
		site:        site,
		store:       store,
		coordinator: coordinator,
		logger:      logger,
	}
}

func (s *renderService) Render(ctx context.Context, req Request) (*posts.Post, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	threadNo := req.ThreadNo
	if threadNo == 0 {
		threadNo = req.No
	}
	buf, refs := s.site.Parser().Parse(req.Markup, s.site.Context(req.Board, threadNo, req.No))
	post := posts.New(req.Key(), threadNo, buf)

	if err := s.store.Put(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to store post: %w", err)
	}
	s.logger.Debug("[RENDER] Post rendered",
		"site", s.site.Name(),
		"post", post.Key.String(),
		"references", len(refs),
	)

	if req.Embed {
		if batch := s.start(ctx, post); batch != nil && req.Wait {
			batch.Wait()
		}
	}
	return post, nil
}

func (s *renderService) Get(ctx context.Context, key posts.Key) (*posts.Post, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, key)
}

func (s *renderService) Thread(ctx context.Context, board string, threadNo int64) ([]*posts.Post, error) {
	if board == "" || threadNo <= 0 {
		return nil, posts.ErrInvalidKey
	}
	return s.store.ListByThread(ctx, board, threadNo)
}

func (s *renderService) Embed(ctx context.Context, key posts.Key, wait bool) (*EmbedOutcome, error) {
	post, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	out := &EmbedOutcome{}
	if batch := s.start(ctx, post); batch != nil {
		out.Started = true
		out.Tasks = len(batch.Tasks)
		if wait {
			ok := batch.Wait()
			out.OK = &ok
		}
	}
	out.Post = post.Snapshot()
	return out, nil
}

func (s *renderService) start(ctx context.Context, post *posts.Post) *embeds.Batch {
	if s.coordinator == nil {
		return nil
	}
	return s.coordinator.Embed(ctx, post)
}
