package router

import (
	"github.com/gin-gonic/gin"
)

// Mounter attaches its routes below a parent group
type Mounter interface {
	Mount(parent *gin.RouterGroup)
}

// API collects route areas and installs them under /api/<version>
type API struct {
	version string
	areas   []Mounter
}

// NewAPI returns an API for version, "v1" when empty
func NewAPI(version string) *API {
	if version == "" {
		version = "v1"
	}
	return &API{version: version}
}

// Add queues areas for Install
func (a *API) Add(areas ...Mounter) *API {
	a.areas = append(a.areas, areas...)
	return a
}

// Install mounts every queued area on engine and returns the versioned group
func (a *API) Install(engine *gin.Engine) *gin.RouterGroup {
	root := engine.Group("/api/" + a.version)
	for _, area := range a.areas {
		area.Mount(root)
	}
	return root
}

type route struct {
	method string
	path   string
	chain  []gin.HandlerFunc
}

// Area is one resource subtree such as /cache. Guard middleware runs only
// for the area's own routes.
type Area struct {
	prefix string
	guard  []gin.HandlerFunc
	routes []route
}

func NewArea(prefix string) *Area {
	return &Area{prefix: prefix}
}

// Guard adds middleware in front of every route of the area
func (a *Area) Guard(mw ...gin.HandlerFunc) *Area {
	a.guard = append(a.guard, mw...)
	return a
}

// Handle adds a route relative to the area prefix
func (a *Area) Handle(method, path string, chain ...gin.HandlerFunc) *Area {
	a.routes = append(a.routes, route{method: method, path: path, chain: chain})
	return a
}

func (a *Area) Mount(parent *gin.RouterGroup) {
	g := parent.Group(a.prefix, a.guard...)
	for _, r := range a.routes {
		g.Handle(r.method, r.path, r.chain...)
	}
}

// Routes lists "METHOD /prefix/path" for each route, in registration order
func (a *Area) Routes() []string {
	out := make([]string, len(a.routes))
	for i, r := range a.routes {
		out[i] = r.method + " " + a.prefix + r.path
	}
	return out
}
