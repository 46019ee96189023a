package mock

import (
	"net/url"
	"sort"
	"strings"
)

// MethodParam is the request parameter naming the API method
const MethodParam = "method"

// HandlerFunc builds the response for one API call from its parameters
type HandlerFunc func(params url.Values) *MockResponse

// Route binds an HTTP method and either an API method (dispatched on the
// "method" parameter of the REST path) or a fixed path to a handler.
type Route struct {
	HTTPMethod string
	APIMethod  string
	Path       string
	Handler    HandlerFunc
}

// MockResponse represents a mock HTTP response
type MockResponse struct {
	StatusCode  int
	ContentType string
	Headers     map[string]string
	Body        string
}

// Router matches incoming requests to routes
type Router struct {
	routes []*Route
}

// NewRouter creates a new router
func NewRouter() *Router {
	return &Router{
		routes: make([]*Route, 0),
	}
}

// AddRoute adds a route. A later route for the same key replaces the earlier one.
func (r *Router) AddRoute(route *Route) {
	for i, existing := range r.routes {
		if strings.EqualFold(existing.HTTPMethod, route.HTTPMethod) &&
			existing.APIMethod == route.APIMethod &&
			existing.Path == route.Path {
			r.routes[i] = route
			return
		}
	}
	r.routes = append(r.routes, route)
}

// MatchMethod finds the route for an API method on the REST path
func (r *Router) MatchMethod(httpMethod, apiMethod string) *Route {
	for _, route := range r.routes {
		if route.APIMethod != "" && route.APIMethod == apiMethod &&
			strings.EqualFold(route.HTTPMethod, httpMethod) {
			return route
		}
	}
	return nil
}

// MatchPath finds a fixed-path route
func (r *Router) MatchPath(httpMethod, path string) *Route {
	path = normalizePath(path)
	for _, route := range r.routes {
		if route.Path != "" && normalizePath(route.Path) == path &&
			strings.EqualFold(route.HTTPMethod, httpMethod) {
			return route
		}
	}
	return nil
}

// Routes returns the registered routes ordered by API method, then path
func (r *Router) Routes() []*Route {
	out := make([]*Route, len(r.routes))
	copy(out, r.routes)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].APIMethod != out[j].APIMethod {
			return out[i].APIMethod < out[j].APIMethod
		}
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].HTTPMethod < out[j].HTTPMethod
	})
	return out
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}
