package embeds

import (
	"cmp"
	"slices"
	"strings"

	"Threadmark/internal/core/richtext"
)

// replacement is one resolved URL literal to splice into a buffer.
type replacement struct {
	literal string
	icon    string
	result  Result
}

type occurrence struct {
	rep        *replacement
	start, end int
}

// splice replaces every eligible occurrence of each literal with a composite
// run: the icon glyph followed by the result's display text, both tagged
// with one embed Link whose value is the literal. An occurrence is eligible
// only when every byte of it is covered by a non-embed Link to that same
// URL. Occurrences are applied left to right and each offset is shifted by
// the length change of the replacements before it. It returns the literals
// that were replaced at least once.
//
// Every plain Link that displays its own URL is eligible, so once a literal
// is replaced no markup or autolink reference to it remains: each
// occurrence carries its own embed reference instead.
func splice(buf *richtext.Buffer, reps []replacement) ([]string, error) {
	text := buf.String()

	var occs []occurrence
	for i := range reps {
		lit := reps[i].literal
		if lit == "" {
			continue
		}
		for from := 0; from <= len(text); {
			j := strings.Index(text[from:], lit)
			if j < 0 {
				break
			}
			start := from + j
			end := start + len(lit)
			if spliceable(buf, start, end, lit) {
				occs = append(occs, occurrence{rep: &reps[i], start: start, end: end})
			}
			from = end
		}
	}

	// Leftmost first; at equal starts the longer literal wins
	slices.SortStableFunc(occs, func(a, b occurrence) int {
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		return cmp.Compare(b.end, a.end)
	})

	var replaced []string
	delta, lastEnd := 0, -1
	for _, o := range occs {
		if o.start < lastEnd {
			continue
		}
		lastEnd = o.end

		start, end := o.start+delta, o.end+delta
		base := buf.Slice(start, end)[0].Style
		ref := richtext.Link(o.rep.literal, richtext.OriginEmbed)
		display := o.rep.result.DisplayText()
		composite := []richtext.Segment{
			{Text: richtext.IconGlyph, Icon: o.rep.icon, Ref: ref, Style: base},
			{Text: display, Ref: ref, Style: base},
		}
		if err := buf.Replace(start, end, composite); err != nil {
			return replaced, err
		}
		delta += len(richtext.IconGlyph) + len(display) - (end - start)

		if !slices.Contains(replaced, o.rep.literal) {
			replaced = append(replaced, o.rep.literal)
		}
	}
	return replaced, nil
}

func spliceable(buf *richtext.Buffer, start, end int, literal string) bool {
	segs := buf.Slice(start, end)
	if len(segs) == 0 {
		return false
	}
	for _, seg := range segs {
		if seg.Icon != "" || !seg.Ref.IsLink() || seg.Ref.Origin == richtext.OriginEmbed || seg.Ref.URL != literal {
			return false
		}
	}
	return true
}
