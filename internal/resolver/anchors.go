package resolver

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// scanDownloadAnchors walks a catalog page and returns candidate download
// URLs. Anchors are bucketed into tiers by how strongly they signal a file
// link; all anchors from the strongest non-empty tier are returned, resolved
// against base. The markup varies per mirror, so matching is heuristic.
func scanDownloadAnchors(page string, base *url.URL) []string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}

	var direct, byText, byPath []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for ; n != nil; n = n.NextSibling {
			if n.Type == html.ElementNode && n.Data == "a" {
				if href := attr(n, "href"); href != "" {
					if abs := absoluteURL(href, base); abs != "" {
						switch {
						case isDirectDownloadURL(abs):
							direct = append(direct, abs)
						case isDownloadText(anchorText(n)):
							byText = append(byText, abs)
						case isDownloadPath(abs):
							byPath = append(byPath, abs)
						}
					}
				}
			}
			walk(n.FirstChild)
		}
	}
	walk(doc)

	if len(direct) > 0 {
		return direct
	}
	if len(byText) > 0 {
		return byText
	}
	return byPath
}

// isDownloadText reports whether an anchor's visible text reads like a
// download action.
func isDownloadText(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}
	return strings.Contains(t, "download") || t == "get" || strings.HasPrefix(t, "get ")
}

// isDownloadPath reports whether the URL path names a known download
// endpoint script.
func isDownloadPath(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	return strings.Contains(path, "download.php") || strings.Contains(path, "get.php")
}

// anchorText returns the concatenated text content of an anchor.
func anchorText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for ; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				buf.WriteString(c.Data)
			}
			walk(c.FirstChild)
		}
	}
	walk(n.FirstChild)
	return buf.String()
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// absoluteURL resolves href against base, dropping anything that is not
// http(s) once resolved.
func absoluteURL(href string, base *url.URL) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
