// Package analyzer turns one fetched document into a body snippet, the form
// controls it declares, and the links it points at.
package analyzer

import (
	"mime"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/rachel/recon/internal/detection"
	"github.com/rachel/recon/internal/urlutil"
)

const DefaultSnippetLength = 400

type Options struct {
	SnippetLength int
	// WantLinks enables link extraction; only the crawler needs it.
	WantLinks bool
}

type Page struct {
	Snippet string
	IsHTML  bool
	Fields  []detection.InputField
	Links   []*url.URL
}

// Analyze never fails: malformed markup still yields a best-effort tree, and
// non-HTML bodies produce only a snippet.
func Analyze(body, contentType string, pageURL *url.URL, opts Options) Page {
	snippetLen := opts.SnippetLength
	if snippetLen == 0 {
		snippetLen = DefaultSnippetLength
	}

	page := Page{
		Snippet: Snippet(body, snippetLen),
		IsHTML:  IsHTML(contentType, body),
	}
	if !page.IsHTML {
		return page
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return page
	}

	page.Fields = ExtractFields(doc)
	if opts.WantLinks && len(doc.Nodes) > 0 {
		page.Links = collectLinks(doc.Nodes[0], pageURL)
	}
	return page
}

// Snippet returns the first n Unicode scalar values of s. Invalid byte
// sequences are replaced rather than split.
func Snippet(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// IsHTML decides from the Content-Type header, falling back to content
// sniffing when the header is missing or unparseable.
func IsHTML(contentType, body string) bool {
	if contentType != "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			return isHTMLMediaType(mediaType)
		}
	}

	sample := body
	if len(sample) > 512 {
		sample = sample[:512]
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType([]byte(sample)))
	return isHTMLMediaType(sniffed)
}

func isHTMLMediaType(mediaType string) bool {
	switch strings.ToLower(mediaType) {
	case "text/html", "application/xhtml+xml":
		return true
	}
	return false
}

// ExtractLinks parses body and returns every resolvable link, in document order.
func ExtractLinks(body string, base *url.URL) []*url.URL {
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}
	return collectLinks(root, base)
}

var linkElements = map[string]bool{
	"a":      true,
	"link":   true,
	"script": true,
	"img":    true,
	"form":   true,
}

func collectLinks(root *html.Node, base *url.URL) []*url.URL {
	var links []*url.URL

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && linkElements[n.Data] {
			if n.Data != "link" || isStylesheet(n) {
				if u := resolveLinkAttr(n, base); u != nil {
					links = append(links, u)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return links
}

func resolveLinkAttr(n *html.Node, base *url.URL) *url.URL {
	for _, key := range []string{"href", "src", "action"} {
		val, ok := attrValue(n, key)
		if !ok || strings.TrimSpace(val) == "" {
			continue
		}
		return urlutil.Resolve(base, val)
	}
	return nil
}

func isStylesheet(n *html.Node) bool {
	rel, _ := attrValue(n, "rel")
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		if token == "stylesheet" {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
