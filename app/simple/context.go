package simple

import (
	"github.com/quiverhttp/quiver/core/router"
)

// Context is the request context handed to application handlers. It embeds
// the framework context and carries the deployment environment, so handlers
// can branch on development versus production behavior.
type Context struct {
	*router.Context

	env string
}

// Env returns the deployment environment the application was started with,
// e.g. "development" or "production".
func (c *Context) Env() string {
	return c.env
}

// IsDevelopment reports whether the application runs in development mode.
func (c *Context) IsDevelopment() bool {
	return c.env == "development"
}
