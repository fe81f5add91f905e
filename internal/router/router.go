// Package router is a thin layer over http.ServeMux that adds per-group
// middleware. Patterns use ServeMux syntax, e.g. "/products/{id}".
package router

import (
	"net/http"
	"os"
	"slices"
	"strings"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Router registers routes on a shared mux. Groups share the mux and extend
// the middleware chain; the first middleware in the chain runs first.
type Router struct {
	mux   *http.ServeMux
	chain []Middleware
}

// New returns a root router. mw runs for every route, including NotFound
// and Static.
func New(mw ...Middleware) *Router {
	return &Router{mux: http.NewServeMux(), chain: mw}
}

// Group returns a router on the same mux whose routes also run mw.
func (r *Router) Group(mw ...Middleware) *Router {
	return &Router{mux: r.mux, chain: append(slices.Clip(r.chain), mw...)}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handle registers h for method and pattern. Route middleware runs after the
// group's.
func (r *Router) Handle(method, pattern string, h http.Handler, mw ...Middleware) {
	r.mux.Handle(method+" "+pattern, r.build(h, mw))
}

func (r *Router) Get(pattern string, h http.HandlerFunc, mw ...Middleware) {
	r.Handle(http.MethodGet, pattern, h, mw...)
}

func (r *Router) Post(pattern string, h http.HandlerFunc, mw ...Middleware) {
	r.Handle(http.MethodPost, pattern, h, mw...)
}

func (r *Router) Patch(pattern string, h http.HandlerFunc, mw ...Middleware) {
	r.Handle(http.MethodPatch, pattern, h, mw...)
}

func (r *Router) Delete(pattern string, h http.HandlerFunc, mw ...Middleware) {
	r.Handle(http.MethodDelete, pattern, h, mw...)
}

// Static serves the files under dir at prefix. Directories answer 404.
func (r *Router) Static(prefix, dir string) {
	prefix = strings.TrimSuffix(prefix, "/")
	files := http.StripPrefix(prefix, http.FileServer(filesOnly{http.Dir(dir)}))
	r.mux.Handle("GET "+prefix+"/{file...}", r.build(files, nil))
}

// NotFound handles every request no other pattern matches.
func (r *Router) NotFound(h http.HandlerFunc) {
	r.mux.Handle("/", r.build(h, nil))
}

func (r *Router) build(h http.Handler, extra []Middleware) http.Handler {
	for i := len(extra) - 1; i >= 0; i-- {
		h = extra[i](h)
	}
	for i := len(r.chain) - 1; i >= 0; i-- {
		h = r.chain[i](h)
	}
	return h
}

// filesOnly keeps upload directories from being listed.
type filesOnly struct {
	root http.FileSystem
}

func (fs filesOnly) Open(name string) (http.File, error) {
	f, err := fs.root.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err == nil && info.IsDir() {
		err = os.ErrNotExist
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
