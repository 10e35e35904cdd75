package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

// Route maps a path prefix to one upstream service.
type Route struct {
	Prefix   string
	Upstream *url.URL
	proxy    *httputil.ReverseProxy
}

// Proxy forwards validated requests to upstream services by longest matching
// path prefix.
type Proxy struct {
	routes []Route
}

// NewProxy builds a proxy from a prefix-to-upstream table. Upstream values
// must be absolute URLs.
func NewProxy(upstreams map[string]string) (*Proxy, error) {
	p := &Proxy{}
	for prefix, raw := range upstreams {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("upstream for %q: invalid url %q", prefix, raw)
		}
		if !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}
		p.routes = append(p.routes, Route{
			Prefix:   prefix,
			Upstream: u,
			proxy:    httputil.NewSingleHostReverseProxy(u),
		})
	}
	// Longest prefix first so /api/v1/profile beats /api.
	sort.Slice(p.routes, func(i, j int) bool {
		return len(p.routes[i].Prefix) > len(p.routes[j].Prefix)
	})
	return p, nil
}

// Handler serves every request by forwarding it to the matching upstream.
func (p *Proxy) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		route := p.match(r.URL.Path)
		if route == nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "NOT_FOUND", "message": "no upstream for path"})
		}
		route.proxy.ServeHTTP(c.Response(), r)
		return nil
	}
}

func (p *Proxy) match(path string) *Route {
	for i := range p.routes {
		prefix := strings.TrimSuffix(p.routes[i].Prefix, "/")
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return &p.routes[i]
		}
	}
	return nil
}
