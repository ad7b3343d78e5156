package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/explanner/planner-client/internal/auth/store"
)

// identityKey is the context key the guard stores the request identity
// under; handlers read it back through identityFrom.
const identityKey = "identity"

// RequireSession gates the protected planning views. The check is a plain
// branch on session presence, re-evaluated on every request; it never caches
// a decision and never produces an error of its own.
func RequireSession(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := s.Identity()
		if !ok {
			c.Redirect(http.StatusSeeOther, loginPath)
			c.Abort()
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}
