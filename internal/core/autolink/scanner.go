// Package autolink finds bare http(s) URLs in plain text runs.
package autolink

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// schemeStart locates candidate URL starts anywhere in a run, whatever the
// preceding punctuation or the scheme's case.
var schemeStart = regexp.MustCompile(`(?i)https?://`)

// urlGrammar replaces linkify's default, which insists on an alphabetic
// TLD. Hosts may be names, single labels, IPv4 or bracketed IPv6 literals.
var urlGrammar = regexp.MustCompile(`^https?://(?:\[[0-9a-fA-F:.]+\]|[-a-zA-Z0-9@:%._+~=]{1,256})(?::\d+)?(?:[/#?][-a-zA-Z0-9@:%_+.~#$!?&/=();,'^{}\[\]` + "`" + `]*)?`)

// Match is a URL found in scanned text. Start and End are byte offsets
// into the scanned string.
type Match struct {
	URL   string
	Start int
	End   int
}

// Scanner detects URLs using goldmark's linkify parser. Only paragraph
// blocks and the linkify inline parser are enabled, so no other markdown
// construct can swallow text.
type Scanner struct {
	parser parser.Parser
}

// NewScanner creates a scanner restricted to the http and https schemes.
func NewScanner() *Scanner {
	linkify := extension.NewLinkifyParser(
		extension.WithLinkifyAllowedProtocols([]string{"http:", "https:"}),
		extension.WithLinkifyURLRegexp(urlGrammar),
	)
	return &Scanner{
		parser: parser.NewParser(
			parser.WithBlockParsers(util.Prioritized(parser.NewParagraphParser(), 1000)),
			parser.WithInlineParsers(util.Prioritized(linkify, 999)),
		),
	}
}

// Find returns every http(s) URL in s, in order of appearance.
//
// Linkify only fires at a line head, so each scheme occurrence is fed to
// the parser as its own line, from the scheme to the end of the line.
func (sc *Scanner) Find(s string) []Match {
	var matches []Match
	cursor := 0
	for cursor < len(s) {
		loc := schemeStart.FindStringIndex(s[cursor:])
		if loc == nil {
			break
		}
		start := cursor + loc[0]
		cursor = cursor + loc[1]
		// "xhttp://" is part of a word, not a URL
		if start > 0 && isWordByte(s[start-1]) {
			continue
		}

		n := sc.scan(s[start:lineEnd(s, start)])
		if n == 0 {
			continue
		}
		matches = append(matches, Match{URL: s[start : start+n], Start: start, End: start + n})
		cursor = start + n
	}
	return matches
}

// scan returns the length of the URL linkify recognises at the head of
// line, or 0.
func (sc *Scanner) scan(line string) int {
	src := []byte(line)
	// The allowed-protocol check is case sensitive; lowering the scheme
	// keeps byte offsets intact
	scheme := bytes.Index(src, []byte("://"))
	copy(src[:scheme], bytes.ToLower(src[:scheme]))

	doc := sc.parser.Parse(text.NewReader(src))

	n := 0
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := node.(*ast.AutoLink)
		if !ok {
			return ast.WalkContinue, nil
		}
		label := link.Label(src)
		if link.AutoLinkType == ast.AutoLinkURL && bytes.HasPrefix(src, label) {
			n = len(label)
		}
		return ast.WalkStop, nil
	})
	return n
}

func lineEnd(s string, from int) int {
	if i := strings.IndexByte(s[from:], '\n'); i >= 0 {
		return from + i
	}
	return len(s)
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
