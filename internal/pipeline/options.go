package pipeline

import (
	"html/template"
	"log/slog"
	"net/url"

	"git.home.luguber.info/inful/fest/internal/config"
	"git.home.luguber.info/inful/fest/internal/events"
	"git.home.luguber.info/inful/fest/internal/metrics"
	"git.home.luguber.info/inful/fest/internal/render"
	"git.home.luguber.info/inful/fest/internal/routes"
)

// Options carries the collaborators shared by the stages.
type Options struct {
	Config   *config.Config
	Engine   *render.Engine
	Store    *routes.Store
	Notifier events.Notifier
	Metrics  metrics.Recorder
	Logger   *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) recorder() metrics.Recorder { return metrics.OrNoop(o.Metrics) }

// Data is the template data for pages, the layout and custom error pages.
type Data struct {
	Config *config.Config
	Page   routes.Route
	Path   string
	Query  url.Values
	Dev    bool

	// Body is the wrapped page markup when rendering the layout.
	Body template.HTML
	// Status and Message describe the failure when rendering an error page.
	Status  int
	Message string
}

func (o Options) data(x *Exchange) Data {
	d := Data{
		Config: o.Config,
		Path:   x.Request.URL.Path,
		Query:  x.Request.URL.Query(),
		Dev:    o.Config != nil && o.Config.Dev.Enabled,
	}
	if x.Route != nil {
		d.Page = *x.Route
	}
	return d
}

// Standard assembles the stages in the order fest serves with:
// ErrorCapture, Assets, DevOverlay (dev only), UIAssets (UI only), Static,
// Layout and the Render terminal.
func Standard(o Options) *Pipeline {
	cfg := o.Config
	stages := []Stage{ErrorCapture(o), Assets(cfg.StaticDir)}
	if cfg.Dev.Enabled {
		stages = append(stages, DevOverlay(o))
	}
	if cfg.UseFestUI {
		stages = append(stages, UIAssets(o))
	}
	stages = append(stages, Static(cfg.StaticDir), Layout(o))
	return New(Render(o), stages...)
}
