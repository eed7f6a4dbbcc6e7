package richtext

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// IconGlyph stands in for an embedder icon inside the text. Renderers draw
// the segment's Icon asset over it.
const IconGlyph = "\uFFFC"

var (
	// ErrOutOfRange is returned when a replace range does not fit the buffer
	ErrOutOfRange = errors.New("range out of bounds")

	// ErrSplitRune is returned when a range boundary falls inside a UTF-8 sequence
	ErrSplitRune = errors.New("range splits a UTF-8 sequence")
)

// Segment is a run of text with uniform style and at most one reference tag.
type Segment struct {
	Ref   *Reference `json:"ref,omitempty"`
	Text  string     `json:"text"`
	Icon  string     `json:"icon,omitempty"`
	Style Style      `json:"style,omitempty"`
}

// mergeable reports whether b can be folded into a without losing information.
// Segments sharing the same *Reference stay one reference when merged.
func mergeable(a, b Segment) bool {
	return a.Style == b.Style && a.Ref == b.Ref && a.Icon == "" && b.Icon == ""
}

// Buffer is the annotated text of a post: an ordered list of segments
// addressed by byte offset. It is mutated only through Replace, so all offset
// bookkeeping stays with the caller doing the splice.
//
// A Buffer is not safe for concurrent use; posts guard theirs with a lock.
type Buffer struct {
	segs []Segment
}

// NewBuffer creates a buffer holding segs.
func NewBuffer(segs ...Segment) *Buffer {
	return &Buffer{segs: normalize(segs)}
}

// Plain creates a buffer from unstyled text.
func Plain(text string) *Buffer {
	return NewBuffer(Segment{Text: text})
}

// Len returns the total length in bytes.
func (b *Buffer) Len() int {
	n := 0
	for _, s := range b.segs {
		n += len(s.Text)
	}
	return n
}

// String returns the flattened text.
func (b *Buffer) String() string {
	var sb strings.Builder
	for _, s := range b.segs {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Segments returns a copy of the segment list.
func (b *Buffer) Segments() []Segment {
	out := make([]Segment, len(b.segs))
	copy(out, b.segs)
	return out
}

// Clone returns an independent copy. References are shared; they are
// immutable once attached.
func (b *Buffer) Clone() *Buffer {
	return &Buffer{segs: b.Segments()}
}

// Append adds seg at the end of the buffer.
func (b *Buffer) Append(seg Segment) {
	end := b.Len()
	// Appending at the end can never fail
	_ = b.Replace(end, end, []Segment{seg})
}

// Slice returns copies of the segments covering [start, end), cut at the
// boundaries.
func (b *Buffer) Slice(start, end int) []Segment {
	var out []Segment
	pos := 0
	for _, s := range b.segs {
		segEnd := pos + len(s.Text)
		if segEnd <= start {
			pos = segEnd
			continue
		}
		if pos >= end {
			break
		}
		cut := s
		cut.Text = s.Text[max(start, pos)-pos : min(end, segEnd)-pos]
		if cut.Text != "" {
			out = append(out, cut)
		}
		pos = segEnd
	}
	return out
}

// Replace substitutes [start, end) with repl.
func (b *Buffer) Replace(start, end int, repl []Segment) error {
	if err := b.checkRange(start, end); err != nil {
		return err
	}
	head := b.Slice(0, start)
	tail := b.Slice(end, b.Len())

	out := make([]Segment, 0, len(head)+len(repl)+len(tail))
	out = append(out, head...)
	out = append(out, repl...)
	out = append(out, tail...)
	b.segs = normalize(out)
	return nil
}

// Retag replaces the reference on [start, end) with ref, keeping text and
// style. A nil ref turns the range into plain text.
func (b *Buffer) Retag(start, end int, ref *Reference) error {
	if err := b.checkRange(start, end); err != nil {
		return err
	}
	segs := b.Slice(start, end)
	for i := range segs {
		segs[i].Ref = ref
	}
	return b.Replace(start, end, segs)
}

// References returns every reference with the range it covers, in text
// order. Adjacent segments sharing one *Reference form a single range.
func (b *Buffer) References() []AnchoredReference {
	var out []AnchoredReference
	var cur *Reference
	var sb strings.Builder
	start, pos := 0, 0

	flush := func() {
		if cur != nil {
			out = append(out, AnchoredReference{Reference: *cur, Start: start, End: pos, Text: sb.String()})
		}
		sb.Reset()
	}

	for _, s := range b.segs {
		if s.Ref != cur {
			flush()
			cur = s.Ref
			start = pos
		}
		if cur != nil {
			sb.WriteString(s.Text)
		}
		pos += len(s.Text)
	}
	flush()
	return out
}

func (b *Buffer) checkRange(start, end int) error {
	n := b.Len()
	if start < 0 || end < start || end > n {
		return fmt.Errorf("%w: [%d,%d) of %d", ErrOutOfRange, start, end, n)
	}
	text := b.String()
	if (start < n && !utf8.RuneStart(text[start])) || (end < n && !utf8.RuneStart(text[end])) {
		return fmt.Errorf("%w: [%d,%d)", ErrSplitRune, start, end)
	}
	return nil
}

// normalize drops empty segments and merges neighbours that are mergeable.
func normalize(segs []Segment) []Segment {
	out := make([]Segment, 0, len(segs))
	for _, s := range segs {
		if s.Text == "" {
			continue
		}
		if n := len(out); n > 0 && mergeable(out[n-1], s) {
			out[n-1].Text += s.Text
			continue
		}
		out = append(out, s)
	}
	return out
}
