package pipeline

import (
	"html/template"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
	"git.home.luguber.info/inful/fest/internal/htmlpatch"
	"git.home.luguber.info/inful/fest/internal/routes"
)

// LayoutName is the base name of the layout template in the pages directory.
const LayoutName = "_layout"

// Layout wraps rendered page fragments in the site layout. Bodies that are
// already complete documents, and responses that did not come from a page
// route, are left alone.
func Layout(o Options) Stage {
	return func(x *Exchange, next Next) error {
		if err := next(); err != nil {
			return err
		}
		if x.Route == nil || !x.Response.IsHTML() {
			return nil
		}
		layout, ok := routes.FindTemplate(o.Config.PagesDir, LayoutName)
		if !ok {
			return nil
		}
		body, err := x.Response.Body()
		if err != nil {
			return ferrors.FileSystemError("read response body").WithCause(err).Build()
		}
		if htmlpatch.IsDocument(body) {
			return nil
		}

		data := o.data(x)
		data.Body = template.HTML(body) //nolint:gosec // rendered page output
		out, err := o.Engine.RenderString(x.Context(), layout, data)
		if err != nil {
			return err
		}
		x.Response.SetBody(out)
		return nil
	}
}
