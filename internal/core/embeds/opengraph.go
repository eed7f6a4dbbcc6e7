package embeds

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// openGraphData represents OpenGraph metadata extracted from HTML
type openGraphData struct {
	Title       string
	Description string
	Image       string
	URL         string
}

// parseOpenGraph extracts OpenGraph metadata from an HTML page, falling
// back to <title> and the description meta tag.
func parseOpenGraph(body []byte) openGraphData {
	var og openGraphData
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return og
	}

	var pageTitle, metaDescription string

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Meta:
				property := getAttr(n, "property")
				content := strings.TrimSpace(getAttr(n, "content"))
				switch property {
				case "og:title":
					if og.Title == "" {
						og.Title = content
					}
				case "og:description":
					if og.Description == "" {
						og.Description = content
					}
				case "og:image":
					if og.Image == "" {
						og.Image = content
					}
				case "og:url":
					if og.URL == "" {
						og.URL = content
					}
				}
				if getAttr(n, "name") == "description" && metaDescription == "" {
					metaDescription = content
				}
			case atom.Title:
				if pageTitle == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					pageTitle = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	if og.Title == "" {
		og.Title = pageTitle
	}
	if og.Description == "" {
		og.Description = metaDescription
	}
	return og
}

// getAttr gets an attribute value from an HTML node
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
