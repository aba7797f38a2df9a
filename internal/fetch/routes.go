package fetch

import (
	"net/url"
	"sync"
)

// DefaultDirectoryURL is the well-known lobby directory list endpoint.
const DefaultDirectoryURL = "http://battlezone98mp.webdev.rebellion.co.uk/lobbyServer?__gameId=BZ98"

// Route is one access path to the directory. The direct route hits the
// target endpoint as-is; fallback routes wrap it in a relay that is
// reachable when the direct route is blocked.
type Route struct {
	Name string
	// Wrap turns the target endpoint URL into the URL actually requested.
	Wrap func(target string) string
}

// DirectRouteName identifies the unwrapped primary route.
const DirectRouteName = "direct"

// DirectRoute returns the primary route.
func DirectRoute() Route {
	return Route{
		Name: DirectRouteName,
		Wrap: func(target string) string { return target },
	}
}

// RelayRoute returns a fallback route that requests the target through a
// relay prefix, with the target URL query-escaped onto it.
func RelayRoute(name, prefix string) Route {
	return Route{
		Name: name,
		Wrap: func(target string) string { return prefix + url.QueryEscape(target) },
	}
}

// DefaultFallbackRoutes returns the built-in relay routes, in priority
// order. These are public CORS relays that stay reachable from networks
// where the Rebellion host is filtered.
func DefaultFallbackRoutes() []Route {
	return []Route{
		RelayRoute("allorigins", "https://api.allorigins.win/raw?url="),
		RelayRoute("corsproxy", "https://corsproxy.io/?"),
	}
}

// RouteMemory remembers the most recently successful route for a group
// of fetches. It is owned by the caller and passed into each fetch, so
// independent pipelines keep independent route preferences. Memory only
// reorders fallbacks, it never skips one.
type RouteMemory struct {
	mu   sync.Mutex
	last string
}

// Remember records the route name that just succeeded.
func (m *RouteMemory) Remember(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.last = name
	m.mu.Unlock()
}

// Last returns the most recently successful route name, or "".
func (m *RouteMemory) Last() string {
	if m == nil {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// orderFallbacks returns the fallback list with the remembered
// last-successful fallback (if any) moved to the front.
func orderFallbacks(fallbacks []Route, last string) []Route {
	if last == "" || last == DirectRouteName {
		return fallbacks
	}
	ordered := make([]Route, 0, len(fallbacks))
	for _, r := range fallbacks {
		if r.Name == last {
			ordered = append(ordered, r)
		}
	}
	if len(ordered) == 0 {
		return fallbacks
	}
	for _, r := range fallbacks {
		if r.Name != last {
			ordered = append(ordered, r)
		}
	}
	return ordered
}
