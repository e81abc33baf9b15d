// Package imageurl turns the image references stored on posts into URLs a
// browser can load.
package imageurl

import (
	"net/url"
	"strings"
)

const (
	Placeholder  = "/placeholder.png"
	uploadsPath  = "/uploads/"
	imagesPrefix = "/uploads/images"
)

// Resolver rewrites image references against a public base URL.
type Resolver struct {
	base        string
	legacyHosts []string
}

// New creates a Resolver. legacyHosts are host fragments (an old server
// IP, "ec2-") whose absolute URLs are moved onto base.
func New(base string, legacyHosts []string) *Resolver {
	hosts := make([]string, 0, len(legacyHosts))
	for _, h := range legacyHosts {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return &Resolver{base: strings.TrimRight(base, "/"), legacyHosts: hosts}
}

// Resolve returns the URL to load for path.
func (r *Resolver) Resolve(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return Placeholder
	}

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		if r.isLegacy(path) {
			return r.base + legacyPath(path)
		}
		if rest, ok := strings.CutPrefix(path, "http://"); ok {
			return "https://" + rest
		}
		return path
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasPrefix(path, uploadsPath) {
		path = imagesPrefix + path
	}
	return r.base + path
}

// ResolveAll resolves every path, dropping nothing.
func (r *Resolver) ResolveAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = r.Resolve(p)
	}
	return out
}

func (r *Resolver) isLegacy(raw string) bool {
	host := raw
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host = u.Host
	}
	for _, h := range r.legacyHosts {
		if strings.Contains(host, h) {
			return true
		}
	}
	return false
}

// legacyPath extracts the path of an absolute URL, falling back to the
// /uploads/ suffix when the URL does not parse.
func legacyPath(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		return u.EscapedPath()
	}
	if i := strings.Index(raw, uploadsPath); i >= 0 {
		return raw[i:]
	}
	rest := raw[strings.Index(raw, "://")+3:]
	if i := strings.Index(rest, "/"); i >= 0 {
		return rest[i:]
	}
	return "/"
}
