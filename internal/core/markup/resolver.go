package markup

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"Threadmark/internal/core/richtext"
)

// Patterns are the site-provided expressions used to classify anchors.
// Quote and FullQuote are required; the rest are optional.
type Patterns struct {
	// Quote extracts a post number from a same-thread anchor target.
	Quote *regexp.Regexp
	// FullQuote extracts board, thread number and post number from a path.
	FullQuote *regexp.Regexp
	// Board extracts a board code from a board index path.
	Board *regexp.Regexp
	// Search extracts board and query from a catalog search path.
	Search *regexp.Regexp
	// Archive extracts board, thread and post from an archive URL.
	Archive *regexp.Regexp
	// TextQuote extracts a post number from the display text of a
	// fragment-only anchor the Quote pattern did not accept.
	TextQuote *regexp.Regexp
}

// DefaultPatterns returns the quote conventions shared by most imageboards.
func DefaultPatterns() Patterns {
	return Patterns{
		Quote:     regexp.MustCompile(`.*#p?(\d+)`),
		FullQuote: regexp.MustCompile(`/(\w+)/\w+/(\d+)(?:\.html)?#p?(\d+)`),
		Board:     regexp.MustCompile(`^/(\w+)/?$`),
		Search:    regexp.MustCompile(`^/(\w+)/catalog#s=(.+)$`),
		TextQuote: regexp.MustCompile(`^>>(\d+)$`),
	}
}

// Context identifies the post being parsed. Host, when set, is the site's
// own host name: absolute anchors to it are resolved like relative ones.
type Context struct {
	Host     string `json:"host,omitempty"`
	Board    string `json:"board"`
	ThreadNo int64  `json:"threadNo"`
	PostNo   int64  `json:"postNo,omitempty"`
}

// Outcome classifies a resolution attempt.
type Outcome int

const (
	// Unmatched anchors keep their text without a reference.
	Unmatched Outcome = iota
	// Resolved anchors carry a reference.
	Resolved
	// Malformed anchors matched a pattern with unusable captures.
	Malformed
)

// Resolver is the ReferenceResolver: it turns anchor targets into typed
// references. It never fails; bad input degrades to Unmatched or Malformed.
type Resolver struct {
	patterns Patterns
}

// NewResolver creates a resolver for a site's patterns.
func NewResolver(patterns Patterns) *Resolver {
	return &Resolver{patterns: patterns}
}

// Resolve classifies an anchor with target href and inner text. It returns
// the reference and the text it should decorate.
func (r *Resolver) Resolve(href, text string, ctx Context) (*richtext.Reference, string, Outcome) {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil, text, Unmatched
	}

	if m := match(r.patterns.Archive, href, 4); m != nil {
		thread, err1 := strconv.ParseInt(m[2], 10, 64)
		post, err2 := parseOptionalInt(m[3])
		if err1 != nil || err2 != nil {
			return nil, text, Malformed
		}
		return richtext.Archive(m[1], thread, post), text, Resolved
	}

	target := href
	absolute := isAbsoluteURL(href)
	if absolute {
		u, err := url.Parse(href)
		if err != nil || u.Host == "" {
			return nil, text, Unmatched
		}
		if ctx.Host == "" || !strings.EqualFold(u.Hostname(), ctx.Host) {
			return richtext.Link(href, richtext.OriginMarkup), href, Resolved
		}
		target = u.EscapedPath()
		if u.Fragment != "" {
			target += "#" + u.Fragment
		}
	}

	if m := match(r.patterns.FullQuote, target, 4); m != nil {
		thread, err1 := strconv.ParseInt(m[2], 10, 64)
		post, err2 := strconv.ParseInt(m[3], 10, 64)
		if err1 != nil || err2 != nil {
			return nil, text, Malformed
		}
		if m[1] == ctx.Board && thread == ctx.ThreadNo {
			return richtext.Quote(post), text, Resolved
		}
		return richtext.CrossThreadQuote(m[1], thread, post), text, Resolved
	}

	if m := match(r.patterns.Quote, target, 2); m != nil {
		post, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, text, Malformed
		}
		return richtext.Quote(post), text, Resolved
	}

	if strings.HasPrefix(target, "#") {
		if m := match(r.patterns.TextQuote, strings.TrimSpace(text), 2); m != nil {
			post, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				return nil, text, Malformed
			}
			return richtext.Quote(post), text, Resolved
		}
	}

	if m := match(r.patterns.Search, target, 3); m != nil {
		query, err := url.QueryUnescape(m[2])
		if err != nil {
			query = m[2]
		}
		return richtext.Search(m[1], query), text, Resolved
	}

	if m := match(r.patterns.Board, target, 2); m != nil {
		return richtext.BoardLink(m[1]), text, Resolved
	}

	// Own-host pages that are not posts or boards are still external pages
	if absolute {
		return richtext.Link(href, richtext.OriginMarkup), href, Resolved
	}
	return nil, text, Unmatched
}

// match applies re to s and returns the submatches when it matched with at
// least n groups including the whole match.
func match(re *regexp.Regexp, s string, n int) []string {
	if re == nil {
		return nil
	}
	m := re.FindStringSubmatch(s)
	if len(m) < n {
		return nil
	}
	return m
}

func parseOptionalInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// isAbsoluteURL reports whether s is an http(s) or protocol-relative URL.
func isAbsoluteURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "//")
}
