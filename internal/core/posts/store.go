package posts

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is an in-process Store. Posts are kept until the process exits
// or the oldest entries are pushed out by the capacity limit.
type MemoryStore struct {
	mu       sync.RWMutex
	posts    map[Key]*Post
	order    []Key
	capacity int
}

// NewMemoryStore creates a store holding at most capacity posts; zero
// means unbounded.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{
		posts:    make(map[Key]*Post),
		capacity: capacity,
	}
}

func (s *MemoryStore) Put(_ context.Context, post *Post) error {
	if err := post.Key.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[post.Key]; !exists {
		s.order = append(s.order, post.Key)
	}
	s.posts[post.Key] = post

	for s.capacity > 0 && len(s.order) > s.capacity {
		delete(s.posts, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key Key) (*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[key]
	if !ok {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *MemoryStore) ListByThread(_ context.Context, board string, threadNo int64) ([]*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Post
	for _, p := range s.posts {
		if p.Board == board && p.ThreadNo == threadNo {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b *Post) int {
		switch {
		case a.No < b.No:
			return -1
		case a.No > b.No:
			return 1
		}
		return 0
	})
	return out, nil
}
