// Package htmlpatch splices markup into rendered HTML documents.
//
// Tags are located with the golang.org/x/net/html tokenizer, so a "</body>"
// inside a script, a comment or an attribute value never matches.
package htmlpatch

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

// ErrTagNotFound is returned when the anchor tag is absent from the document.
var ErrTagNotFound = errors.New("htmlpatch: tag not found")

// InsertBefore inserts snippet immediately before the first closing tag named
// tag (for example "head" for "</head>").
func InsertBefore(doc, tag, snippet string) (string, error) {
	i := IndexTag(doc, tag, true)
	if i < 0 {
		return doc, ErrTagNotFound
	}
	return doc[:i] + snippet + doc[i:], nil
}

// IndexTag returns the byte offset of the first start tag (end=false) or end
// tag (end=true) named tag, or -1.
func IndexTag(doc, tag string, end bool) int {
	want := html.StartTagToken
	if end {
		want = html.EndTagToken
	}
	tag = strings.ToLower(tag)

	z := html.NewTokenizer(strings.NewReader(doc))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return -1
		}
		raw := len(z.Raw())
		if tt == want || (!end && tt == html.SelfClosingTagToken) {
			name, _ := z.TagName()
			if string(name) == tag {
				return offset
			}
		}
		offset += raw
	}
}

// InjectHead places snippet before "</head>". Without a head it goes before
// the "<body>" start tag, and without either at the start of the document.
func InjectHead(doc, snippet string) string {
	if out, err := InsertBefore(doc, "head", snippet); err == nil {
		return out
	}
	if i := IndexTag(doc, "body", false); i >= 0 {
		return doc[:i] + snippet + doc[i:]
	}
	return snippet + doc
}

// InjectBody places snippet before "</body>", or appends it when the document
// has no closing body tag.
func InjectBody(doc, snippet string) string {
	if out, err := InsertBefore(doc, "body", snippet); err == nil {
		return out
	}
	return doc + snippet
}

// IsDocument reports whether doc already is a complete HTML document, that is
// whether it carries an HTML doctype.
func IsDocument(doc string) bool {
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.DoctypeToken:
			return strings.EqualFold(strings.TrimSpace(string(z.Text())), "html")
		case html.CommentToken:
			continue
		case html.TextToken:
			if strings.TrimSpace(string(z.Text())) == "" {
				continue
			}
			return false
		default:
			return false
		}
	}
}
