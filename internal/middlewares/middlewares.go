// Package middlewares holds the cross-cutting HTTP middlewares.
package middlewares

import (
	"errors"
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"github.com/webstoer2020/Subscription-bot/internal/api/respond"
)

var errUnauthorized = errors.New("unauthorized")

// CORSMiddleware allows browser-based admin tooling to call the API.
func CORSMiddleware() func(c *ginext.Context) {
	return func(c *ginext.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Admin-Token")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// AdminAuth rejects requests that do not carry the configured admin
// token. An empty configured token disables the check; the caller is
// expected to have warned about that at startup.
func AdminAuth(token string) func(c *ginext.Context) {
	return func(c *ginext.Context) {
		if token != "" && c.GetHeader("X-Admin-Token") != token {
			respond.Fail(c.Writer, http.StatusUnauthorized, errUnauthorized)
			c.Abort()
			return
		}

		c.Next()
	}
}
