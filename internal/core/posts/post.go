package posts

import (
	"slices"
	"sync"
	"sync/atomic"

	"Threadmark/internal/core/richtext"
)

// Post owns one rendered post body. The buffer, references and images are
// written once by the parser and at most once more by a successful embedding
// run holding the InProgress status.
type Post struct {
	Key
	ThreadNo int64

	status atomic.Int32

	mu     sync.RWMutex
	buffer *richtext.Buffer
	refs   []richtext.AnchoredReference
	images []InlineImage
}

// New creates a post from parser output.
func New(key Key, threadNo int64, buf *richtext.Buffer) *Post {
	if buf == nil {
		buf = richtext.NewBuffer()
	}
	return &Post{
		Key:      key,
		ThreadNo: threadNo,
		buffer:   buf,
		refs:     buf.References(),
	}
}

// Status returns the current embed status.
func (p *Post) Status() EmbedStatus {
	return EmbedStatus(p.status.Load())
}

// TryBeginEmbed moves the post from NotStarted to InProgress. It reports
// false when another run holds the post or it is already complete.
func (p *Post) TryBeginEmbed() bool {
	return p.status.CompareAndSwap(int32(EmbedNotStarted), int32(EmbedInProgress))
}

// EndEmbed releases the InProgress status: Complete on success, NotStarted
// otherwise so the next trigger retries the whole post.
func (p *Post) EndEmbed(success bool) {
	next := EmbedNotStarted
	if success {
		next = EmbedComplete
	}
	p.status.CompareAndSwap(int32(EmbedInProgress), int32(next))
}

// Buffer returns a copy of the current text.
func (p *Post) Buffer() *richtext.Buffer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.buffer.Clone()
}

// References returns the references over the current text.
func (p *Post) References() []richtext.AnchoredReference {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.refs)
}

// Images returns the inline images attached so far.
func (p *Post) Images() []InlineImage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.images)
}

// Commit runs edit against a copy of the buffer inside the post's critical
// section. If edit succeeds the copy replaces the buffer, references are
// recomputed and images appended; otherwise nothing changes. The caller must
// hold the InProgress status.
func (p *Post) Commit(edit func(buf *richtext.Buffer) ([]InlineImage, error)) error {
	if p.Status() != EmbedInProgress {
		return ErrNotEmbedding
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	work := p.buffer.Clone()
	images, err := edit(work)
	if err != nil {
		return err
	}
	p.buffer = work
	p.refs = work.References()
	p.images = append(p.images, images...)
	return nil
}

// Snapshot is a consistent read of a post for rendering.
type Snapshot struct {
	Key
	ThreadNo    int64                        `json:"threadNo"`
	Text        string                       `json:"text"`
	Segments    []richtext.Segment           `json:"segments"`
	References  []richtext.AnchoredReference `json:"references"`
	Images      []InlineImage                `json:"images"`
	EmbedStatus EmbedStatus                  `json:"embedStatus"`
}

// Snapshot captures the post's current state.
func (p *Post) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Snapshot{
		Key:         p.Key,
		ThreadNo:    p.ThreadNo,
		Text:        p.buffer.String(),
		Segments:    p.buffer.Segments(),
		References:  slices.Clone(p.refs),
		Images:      slices.Clone(p.images),
		EmbedStatus: p.Status(),
	}
}
