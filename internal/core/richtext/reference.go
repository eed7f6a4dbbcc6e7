package richtext

import (
	"fmt"
	"strconv"
)

// Kind discriminates the Reference variants.
type Kind int

const (
	KindQuote Kind = iota + 1
	KindCrossThread
	KindBoard
	KindSearch
	KindArchive
	KindLink
)

var kindNames = map[Kind]string{
	KindQuote:       "quote",
	KindCrossThread: "cross_thread_quote",
	KindBoard:       "board",
	KindSearch:      "search",
	KindArchive:     "archive",
	KindLink:        "link",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown reference kind %q", b)
}

// Origin records which stage produced a reference. Reconciliation keeps
// embed-derived links over autolinks and markup links for the same URL.
type Origin int

const (
	OriginMarkup Origin = iota
	OriginAutolink
	OriginEmbed
)

func (o Origin) String() string {
	switch o {
	case OriginAutolink:
		return "autolink"
	case OriginEmbed:
		return "embed"
	default:
		return "markup"
	}
}

// MarshalText encodes the origin by name.
func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an origin name.
func (o *Origin) UnmarshalText(b []byte) error {
	switch string(b) {
	case "markup":
		*o = OriginMarkup
	case "autolink":
		*o = OriginAutolink
	case "embed":
		*o = OriginEmbed
	default:
		return fmt.Errorf("unknown reference origin %q", b)
	}
	return nil
}

// Reference is a navigable target attached to a run of text. Only the
// fields relevant to Kind are set.
type Reference struct {
	Kind     Kind   `json:"kind"`
	Origin   Origin `json:"origin"`
	Board    string `json:"board,omitempty"`
	ThreadNo int64  `json:"threadNo,omitempty"`
	PostNo   int64  `json:"postNo,omitempty"`
	Query    string `json:"query,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Quote references a post in the same thread.
func Quote(postNo int64) *Reference {
	return &Reference{Kind: KindQuote, PostNo: postNo}
}

// CrossThreadQuote references a post in another thread or board.
func CrossThreadQuote(board string, threadNo, postNo int64) *Reference {
	return &Reference{Kind: KindCrossThread, Board: board, ThreadNo: threadNo, PostNo: postNo}
}

// BoardLink references a board index.
func BoardLink(code string) *Reference {
	return &Reference{Kind: KindBoard, Board: code}
}

// Search references a catalog search on a board.
func Search(board, query string) *Reference {
	return &Reference{Kind: KindSearch, Board: board, Query: query}
}

// Archive references a thread or post on an external archive.
func Archive(board string, threadNo, postNo int64) *Reference {
	return &Reference{Kind: KindArchive, Board: board, ThreadNo: threadNo, PostNo: postNo}
}

// Link references an external URL.
func Link(url string, origin Origin) *Reference {
	return &Reference{Kind: KindLink, Origin: origin, URL: url}
}

// IsLink reports whether r is a Link reference.
func (r *Reference) IsLink() bool {
	return r != nil && r.Kind == KindLink
}

// AnchoredReference is a reference together with the byte range of the
// display text it decorates.
type AnchoredReference struct {
	Reference
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}
