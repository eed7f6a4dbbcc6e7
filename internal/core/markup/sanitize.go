package markup

import (
	"github.com/microcosm-cc/bluemonday"
)

// newPolicy builds the sanitizer that cuts remote markup down to the tags
// the rule table knows about. Other elements are unwrapped to their text;
// script-like elements are removed with their content.
func newPolicy(rules *RuleTable) *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(rules.Tags()...)
	p.AllowElements("br", "wbr", "p")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("class").Globally()
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(true)
	p.RequireParseableURLs(true)
	return p
}
