package libgen

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/inkleafapp/inkleaf-server/internal/domain"
)

// Result table column layout. The catalog has kept this order stable for
// years; rows that do not fit are skipped individually.
const (
	colAuthor    = 1
	colTitle     = 2
	colPublisher = 3
	colYear      = 4
	colSize      = 7
	colExtension = 8
	minColumns   = 9
)

// parseCatalogPage extracts book records from a catalog results page.
// The parsing heuristics live behind this one function so they are
// unit-testable without network I/O and replaceable if the markup changes.
//
// Rows missing both a title and a format extension are discarded; malformed
// rows are skipped without aborting the whole parse.
func parseCatalogPage(page string, base *url.URL) ([]domain.BookRecord, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, err
	}

	table := findResultTable(doc)
	if table == nil {
		return nil, ErrBadPage
	}

	now := time.Now()
	var records []domain.BookRecord
	header := true
	for _, row := range childElements(table, "tr") {
		if header {
			// First row carries the column captions.
			header = false
			continue
		}

		cells := childElements(row, "td")
		if len(cells) < minColumns {
			continue
		}

		rec, ok := parseRow(cells, base, now)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// parseRow converts one data row into a record.
func parseRow(cells []*html.Node, base *url.URL, now time.Time) (domain.BookRecord, bool) {
	title := nodeText(cells[colTitle])
	ext := strings.ToLower(nodeText(cells[colExtension]))

	// A row with neither title nor extension carries nothing usable.
	if title == "" && ext == "" {
		return domain.BookRecord{}, false
	}

	rec := domain.BookRecord{
		Title:     title,
		Author:    nodeText(cells[colAuthor]),
		Publisher: nodeText(cells[colPublisher]),
		Year:      nodeText(cells[colYear]),
		FileSize:  nodeText(cells[colSize]),
		Extension: ext,
		SourceID:  domain.SourceLibgen,
		FetchedAt: now,
	}

	// The title cell's link embeds the content hash as an md5 query param.
	for _, href := range anchors(cells[colTitle]) {
		if hash := md5Param(href); hash != "" {
			rec.ContentHash = strings.ToLower(hash)
			break
		}
	}

	// Later cells link to a download page; the first such anchor becomes
	// the record's download hint.
	for _, cell := range cells[colExtension+1:] {
		for _, href := range anchors(cell) {
			if href == "" {
				continue
			}
			rec.DownloadHint = absoluteURL(href, base)
			break
		}
		if rec.DownloadHint != "" {
			break
		}
	}

	// Fall back to the catalog's detail page when no mirror link exists.
	if rec.DownloadHint == "" && rec.ContentHash != "" && base != nil {
		rec.DownloadHint = base.Scheme + "://" + base.Host + "/book/index.php?md5=" + rec.ContentHash
	}

	return rec, true
}

// findResultTable locates the results table: the table with class "c" if
// present, otherwise the table with the most rows (fallback detection for
// mirrors that strip the class).
func findResultTable(doc *html.Node) *html.Node {
	var best *html.Node
	bestRows := 0

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			if attr(n, "class") == "c" {
				best = n
				bestRows = -1 // class match always wins
				return
			}
			if rows := len(childElements(n, "tr")); bestRows >= 0 && rows > bestRows {
				best = n
				bestRows = rows
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
			if bestRows < 0 {
				return
			}
		}
	}
	walk(doc)

	// A results table has at least a header row and one data row.
	if bestRows >= 0 && bestRows < 2 {
		return nil
	}
	return best
}

// childElements collects descendant elements with the given tag, stopping
// descent at each match so nested tables don't leak rows.
func childElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for ; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == tag {
				out = append(out, c)
				continue
			}
			walk(c.FirstChild)
		}
	}
	walk(n.FirstChild)
	return out
}

// nodeText returns the trimmed text content of a node.
func nodeText(n *html.Node) string {
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
	return strings.TrimSpace(buf.String())
}

// anchors returns the href of every anchor under the node.
func anchors(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for ; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "a" {
				if href := attr(c, "href"); href != "" {
					out = append(out, href)
				}
			}
			walk(c.FirstChild)
		}
	}
	walk(n.FirstChild)
	return out
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

// md5Param extracts a 32-hex md5 query parameter from an href, if present.
func md5Param(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	hash := u.Query().Get("md5")
	if len(hash) != 32 {
		return ""
	}
	return hash
}

// absoluteURL resolves an href against the mirror base when it is relative.
func absoluteURL(href string, base *url.URL) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() || base == nil {
		return href
	}
	return base.ResolveReference(u).String()
}
