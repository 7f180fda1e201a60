// Package webui serves the pipeline over HTTP: stage commands, the paged working set and the metrics.
package webui

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luno/sepadoc"
	"github.com/luno/sepadoc/adapters/webui/internal/api"
	"github.com/luno/sepadoc/adapters/webui/internal/frontend"
)

type Paths = frontend.Paths

var DefaultPaths = Paths{
	Fetch:    "/fetch",
	Generate: "/generate",
	Send:     "/send",
	Cancel:   "/cancel",
	State:    "/state",
	Records:  "/records",
}

func HomeHandlerFunc(paths Paths) http.HandlerFunc {
	return frontend.HomeHandlerFunc(paths)
}

// NewRouter routes DefaultPaths to p. Fetch bounds missing from a request are read from s.
func NewRouter(p *sepadoc.Pipeline, s *sepadoc.Settings) http.Handler {
	o := api.NewObserver()
	paths := DefaultPaths

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", HomeHandlerFunc(paths))
	r.Post(paths.Fetch, api.Fetch(p, s.DateRange, o))
	r.Post(paths.Generate, api.Stage(p.Generate, o))
	r.Post(paths.Send, api.Stage(p.Send, o))
	r.Post(paths.Cancel, api.Cancel(p))
	r.Get(paths.State, api.State(p, o))
	r.Get(paths.Records, api.Records(p))
	r.Put(paths.Records+"/{id}/selected", api.Select(p))
	r.Handle("/metrics", promhttp.Handler())

	return r
}
