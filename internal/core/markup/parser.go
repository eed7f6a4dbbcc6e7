// Package markup turns forum post markup into annotated rich text.
package markup

import (
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"Threadmark/internal/core/autolink"
	"Threadmark/internal/core/richtext"
)

// Parser renders raw post markup into a buffer plus its references.
// A Parser is safe for concurrent use.
type Parser struct {
	rules    *RuleTable
	resolver *Resolver
	policy   *bluemonday.Policy
	scanner  *autolink.Scanner
	logger   *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for parse diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithScanner replaces the autolink scanner.
func WithScanner(sc *autolink.Scanner) Option {
	return func(p *Parser) {
		p.scanner = sc
	}
}

// NewParser creates a parser for one site's rules and quote patterns.
func NewParser(rules *RuleTable, resolver *Resolver, opts ...Option) *Parser {
	p := &Parser{
		rules:    rules,
		resolver: resolver,
		scanner:  autolink.NewScanner(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.policy = newPolicy(rules)
	return p
}

// Parse renders raw into a buffer. Malformed markup never fails: whatever
// cannot be understood is kept as plain text. Reference runs keep the style
// of their surroundings; renderers decorate them by Kind. The returned
// references are a snapshot of the buffer's tags in text order.
func (p *Parser) Parse(raw string, ctx Context) (*richtext.Buffer, []richtext.AnchoredReference) {
	clean := p.policy.Sanitize(raw)

	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(clean), container)
	if err != nil {
		p.logger.Warn("[RENDER] Markup parse failed, using plain text",
			"board", ctx.Board, "post", ctx.PostNo, "error", err)
		buf := richtext.Plain(html.UnescapeString(clean))
		p.linkify(buf)
		return buf, buf.References()
	}

	w := &walker{parser: p, ctx: ctx}
	for _, n := range nodes {
		w.walk(n, richtext.Style{}, nil)
	}

	buf := richtext.NewBuffer(w.finish()...)
	p.linkify(buf)
	return buf, buf.References()
}

// linkify tags bare URLs in runs that carry no reference yet.
func (p *Parser) linkify(buf *richtext.Buffer) {
	type span struct {
		start, end int
		url        string
	}
	var found []span

	off := 0
	for _, seg := range buf.Segments() {
		if seg.Ref == nil && seg.Icon == "" {
			for _, m := range p.scanner.Find(seg.Text) {
				found = append(found, span{start: off + m.Start, end: off + m.End, url: m.URL})
			}
		}
		off += len(seg.Text)
	}

	for _, s := range found {
		if err := buf.Retag(s.start, s.end, richtext.Link(s.url, richtext.OriginAutolink)); err != nil {
			p.logger.Debug("[RENDER] Skipping autolink", "url", s.url, "error", err)
		}
	}
}

// walker accumulates segments while descending the markup tree.
type walker struct {
	parser *Parser
	ctx    Context
	segs   []richtext.Segment
}

func (w *walker) emit(text string, style richtext.Style, ref *richtext.Reference) {
	if text == "" {
		return
	}
	w.segs = append(w.segs, richtext.Segment{Text: text, Style: style, Ref: ref})
}

func (w *walker) endsWithNewline() bool {
	if len(w.segs) == 0 {
		return true
	}
	return strings.HasSuffix(w.segs[len(w.segs)-1].Text, "\n")
}

func (w *walker) walk(n *html.Node, style richtext.Style, ref *richtext.Reference) {
	switch n.Type {
	case html.TextNode:
		w.emit(n.Data, style, ref)
		return
	case html.ElementNode:
	default:
		w.walkChildren(n, style, ref)
		return
	}

	switch n.DataAtom {
	case atom.Br:
		w.emit("\n", style, ref)
		return
	case atom.Wbr:
		return
	case atom.A:
		if ref == nil && w.anchor(n, style) {
			return
		}
	}

	rule, ok := w.parser.rules.Match(n.Data, classesOf(n))
	if ok && rule.Drop {
		return
	}
	if ok {
		style = style.Merge(rule.Style)
	}
	w.walkChildren(n, style, ref)
	if ok && rule.Block && !w.endsWithNewline() {
		w.emit("\n", richtext.Style{}, nil)
	}
}

func (w *walker) walkChildren(n *html.Node, style richtext.Style, ref *richtext.Reference) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, style, ref)
	}
}

// anchor resolves an <a> element. It reports false when the anchor did not
// resolve, in which case the caller walks it like any other element.
func (w *walker) anchor(n *html.Node, style richtext.Style) bool {
	text := textContent(n)
	ref, display, outcome := w.parser.resolver.Resolve(attr(n, "href"), text, w.ctx)
	switch outcome {
	case Resolved:
		w.emit(display, style, ref)
		return true
	case Malformed:
		w.parser.logger.Debug("[RENDER] Malformed anchor degraded to text",
			"board", w.ctx.Board, "post", w.ctx.PostNo, "href", attr(n, "href"))
	}
	return false
}

// finish trims trailing line breaks left by block elements.
func (w *walker) finish() []richtext.Segment {
	for len(w.segs) > 0 {
		last := &w.segs[len(w.segs)-1]
		trimmed := strings.TrimRight(last.Text, "\n")
		if trimmed != "" {
			last.Text = trimmed
			break
		}
		w.segs = w.segs[:len(w.segs)-1]
	}
	return w.segs
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func classesOf(n *html.Node) []string {
	return strings.Fields(attr(n, "class"))
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Br {
			sb.WriteString("\n")
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}
