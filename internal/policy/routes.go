// Package policy maps request paths onto route classes: named endpoint
// categories that share one quota budget and one protection level.
package policy

import (
	"net/http"
	"strings"
	"sync"
)

// Route classes. Each names a quota budget in configuration.
const (
	ClassAuth       = "auth"
	ClassSearch     = "search"
	ClassDetail     = "detail"
	ClassCollection = "collection"
	ClassExport     = "export"
)

// Matcher defines criteria to apply a route policy. Paths match by prefix,
// optionally narrowed by a suffix; an empty or "*" method matches
// everything.
type Matcher struct {
	Method string
	Path   string
	Suffix string
}

// Route is the resolved policy for a request: which quota class it belongs
// to and whether it may be reached without a token.
type Route struct {
	ID     string
	Class  string
	Public bool

	matcher Matcher
}

// Engine evaluates requests against an ordered route table. First match
// wins, so more specific prefixes must come before shorter ones.
type Engine struct {
	mu     sync.RWMutex
	routes []Route
}

func NewEngine() *Engine {
	return &Engine{}
}

// LoadRoutes replaces the current table.
func (e *Engine) LoadRoutes(routes []Route) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.routes = routes
}

// Evaluate finds the first matching route. An unmatched request falls back
// to a protected, collection-class route, which is the secure default.
func (e *Engine) Evaluate(r *http.Request) Route {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for i := range e.routes {
		if match(e.routes[i].matcher, r) {
			return e.routes[i]
		}
	}
	return Route{ID: "default", Class: ClassCollection, Public: false}
}

func match(m Matcher, r *http.Request) bool {
	if m.Method != "" && m.Method != "*" && m.Method != r.Method {
		return false
	}
	if !strings.HasPrefix(r.URL.Path, m.Path) {
		return false
	}
	return m.Suffix == "" || strings.HasSuffix(r.URL.Path, m.Suffix)
}

// NewRoute builds a table entry.
func NewRoute(id, method, path, class string, public bool) Route {
	return Route{
		ID:      id,
		Class:   class,
		Public:  public,
		matcher: Matcher{Method: method, Path: path},
	}
}

// NewSuffixRoute builds an entry that also requires a path suffix.
func NewSuffixRoute(id, method, path, suffix, class string, public bool) Route {
	return Route{
		ID:      id,
		Class:   class,
		Public:  public,
		matcher: Matcher{Method: method, Path: path, Suffix: suffix},
	}
}

// DefaultRoutes is the route table for the served API surface. Ordering
// matters: export and stats prefixes sit above the broader collection
// prefixes they extend.
func DefaultRoutes() []Route {
	return []Route{
		NewRoute("health", "*", "/health", ClassDetail, true),
		NewRoute("ready", "*", "/ready", ClassDetail, true),
		NewRoute("metrics", http.MethodGet, "/api/v1/metrics", ClassDetail, true),

		NewRoute("register", http.MethodPost, "/api/v1/auth/register", ClassAuth, true),
		NewRoute("login", http.MethodPost, "/api/v1/auth/login", ClassAuth, true),
		NewRoute("auth", "*", "/api/v1/auth/", ClassAuth, false),

		NewRoute("pokemon-search", http.MethodGet, "/api/v1/pokemon/search", ClassSearch, true),
		NewRoute("pokemon-type", http.MethodGet, "/api/v1/pokemon/type/", ClassSearch, true),
		NewRoute("pokemon-detail", http.MethodGet, "/api/v1/pokemon/", ClassDetail, true),

		NewRoute("pokedex-export", http.MethodGet, "/api/v1/pokedex/export", ClassExport, false),
		NewRoute("pokedex", "*", "/api/v1/pokedex", ClassCollection, false),

		NewSuffixRoute("team-export", http.MethodGet, "/api/v1/teams/", "/export", ClassExport, false),
		NewRoute("teams", "*", "/api/v1/teams", ClassCollection, false),
	}
}
