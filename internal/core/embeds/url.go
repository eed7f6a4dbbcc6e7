package embeds

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// normalizeURL produces the cache key for a link: protocol-relative URLs
// become https, scheme and host are lowercased and the fragment dropped.
// Returns "" for anything that is not an absolute http(s) URL.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// clampTitle limits s to max grapheme clusters, ending a cut title with an
// ellipsis. A non-positive max disables the limit.
func clampTitle(s string, max int) string {
	if max <= 0 || uniseg.GraphemeClusterCount(s) <= max {
		return s
	}
	var sb strings.Builder
	g := uniseg.NewGraphemes(s)
	for n := 0; n < max-1 && g.Next(); n++ {
		sb.WriteString(g.Str())
	}
	return strings.TrimRightFunc(sb.String(), unicode.IsSpace) + "…"
}
