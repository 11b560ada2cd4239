// Package apiconfig enumerates the EduSync HTTP API endpoints.
//
// Endpoint names are stable identifiers ("stats.public", "resources.detail")
// used by routes, the stats client, and templates so that a path lives in
// exactly one place.
package apiconfig

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dalemusser/edusync/internal/domain/models"
)

// Endpoint names.
const (
	AuthLogin    = "auth.login"
	AuthLogout   = "auth.logout"
	AuthRegister = "auth.register"
	AuthMe       = "auth.me"

	ResourcesList     = "resources.list"
	ResourcesDetail   = "resources.detail"
	ResourcesUpload   = "resources.upload"
	ResourcesDownload = "resources.download"
	ResourcesSearch   = "resources.search"

	UsersProfile = "users.profile"

	StatsPublic  = "stats.public"
	StatsAdmin   = "stats.admin"
	StatsFaculty = "stats.faculty"

	Health = "health"
)

// Config maps endpoint names to paths relative to BaseURL.
type Config struct {
	BaseURL   string
	Endpoints map[string]string
}

// Default is the endpoint table served by this application.
// Paths containing "{id}" are templates filled by the URL builders.
var Default = Config{
	BaseURL: "http://localhost:8080",
	Endpoints: map[string]string{
		AuthLogin:    "/login",
		AuthLogout:   "/logout",
		AuthRegister: "/register",
		AuthMe:       "/api/auth/me",

		ResourcesList:     "/api/resources",
		ResourcesDetail:   "/api/resources/{id}",
		ResourcesUpload:   "/api/resources/upload",
		ResourcesDownload: "/api/resources/{id}/download",
		ResourcesSearch:   "/api/resources/search",

		UsersProfile: "/api/users/profile",

		StatsPublic:  "/api/stats/public",
		StatsAdmin:   "/api/stats/admin",
		StatsFaculty: "/api/stats/faculty",

		Health: "/health",
	},
}

// WithBaseURL returns a copy of c pointed at base. Trailing slashes are
// trimmed so URL never produces "//".
func (c Config) WithBaseURL(base string) Config {
	out := Config{
		BaseURL:   strings.TrimRight(base, "/"),
		Endpoints: make(map[string]string, len(c.Endpoints)),
	}
	for k, v := range c.Endpoints {
		out.Endpoints[k] = v
	}
	return out
}

// Path returns the path registered for name, or "" if there is none.
func (c Config) Path(name string) string {
	return c.Endpoints[name]
}

// MustPath is Path for names known at compile time; it panics on a typo.
func (c Config) MustPath(name string) string {
	p, ok := c.Endpoints[name]
	if !ok {
		panic(fmt.Sprintf("apiconfig: no endpoint named %q", name))
	}
	return p
}

// URL returns the absolute URL for name.
func (c Config) URL(name string) string {
	p := c.Path(name)
	if p == "" {
		return ""
	}
	return strings.TrimRight(c.BaseURL, "/") + p
}

// ResourceURL returns the absolute URL of one resource.
func (c Config) ResourceURL(id string) string {
	return strings.Replace(c.URL(ResourcesDetail), "{id}", url.PathEscape(id), 1)
}

// DownloadURL returns the absolute download URL of one resource.
func (c Config) DownloadURL(id string) string {
	return strings.Replace(c.URL(ResourcesDownload), "{id}", url.PathEscape(id), 1)
}

// StatsEndpoint returns the endpoint name serving a stats category.
func StatsEndpoint(cat models.StatsCategory) string {
	return "stats." + string(cat)
}

// StatsPath returns the path serving a stats category.
func (c Config) StatsPath(cat models.StatsCategory) string {
	return c.Path(StatsEndpoint(cat))
}

// StatsURL returns the absolute URL serving a stats category.
func (c Config) StatsURL(cat models.StatsCategory) string {
	return c.URL(StatsEndpoint(cat))
}
