package pipeline

import (
	"html"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	mhtml "github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
	"git.home.luguber.info/inful/fest/internal/htmlpatch"
	"git.home.luguber.info/inful/fest/internal/logfields"
)

// NewMinifier returns a minifier for HTML documents with inline CSS and JS.
// Comments are removed and whitespace is collapsed; document and end tags
// are kept so injected markup stays anchored.
func NewMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	m.Add("text/html", &mhtml.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	return m
}

// UIAssets injects the fest UI stylesheet before </head> and script before
// </body> into HTML responses, then minifies the document. Stream bodies are
// drained first. Assets already referenced by the document are not added again.
func UIAssets(o Options) Stage {
	m := NewMinifier()
	sheet := html.EscapeString(o.Config.UI.Stylesheet)
	script := html.EscapeString(o.Config.UI.Script)
	link := `<link rel="stylesheet" href="` + sheet + `">`
	tag := `<script src="` + script + `"></script>`

	return func(x *Exchange, next Next) error {
		if err := next(); err != nil {
			return err
		}
		if !x.Response.IsHTML() {
			return nil
		}
		body, err := x.Response.Body()
		if err != nil {
			return ferrors.FileSystemError("read response body").WithCause(err).Build()
		}
		if !strings.Contains(body, `href="`+sheet+`"`) {
			body = htmlpatch.InjectHead(body, link)
		}
		if !strings.Contains(body, `src="`+script+`"`) {
			body = htmlpatch.InjectBody(body, tag)
		}

		out, err := m.String("text/html", body)
		if err != nil {
			o.logger().Warn("HTML minification failed; serving unminified",
				logfields.Path(x.Request.URL.Path), logfields.Error(err))
			out = body
		}
		x.Response.SetBody(out)
		return nil
	}
}
