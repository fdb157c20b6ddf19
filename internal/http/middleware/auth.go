// README: Actor identification (no real auth; session management lives upstream).
package middleware

import "github.com/gin-gonic/gin"

const (
	ActorTypeKey = "actorType"
	ActorIDKey   = "actorID"
)

// Identity copies the actor headers into the request context. The gateway in
// front of this service is trusted to have authenticated them.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if t := c.GetHeader("X-Actor-Type"); t != "" {
			c.Set(ActorTypeKey, t)
		}
		if id := c.GetHeader("X-Actor-Id"); id != "" {
			c.Set(ActorIDKey, id)
		}
		c.Next()
	}
}
