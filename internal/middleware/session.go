package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/narsimha-film/abtest-backend/internal/identity"
	"github.com/narsimha-film/abtest-backend/internal/logger"
	"github.com/narsimha-film/abtest-backend/internal/sessiondata"
)

const (
	// SessionCookieName is readable by client script on purpose: the
	// pricing widgets report events with the same id.
	SessionCookieName = "ab_session"

	// SessionHeaderName carries the resolved id on every response so
	// server-rendered pages can read it without re-parsing cookies.
	SessionHeaderName = "X-Session-ID"

	sessionCookieMaxAge = 30 * 24 * 60 * 60
)

type SessionMiddleware struct {
	log    *logger.Logger
	secure bool
}

func NewSessionMiddleware(log *logger.Logger, production bool) *SessionMiddleware {
	middlewareLog := log.With("middleware", "SessionMiddleware")
	return &SessionMiddleware{log: middlewareLog, secure: production}
}

// EnsureSession guarantees every visitor carries a stable UUID-v4 session
// cookie. It knows nothing about experiments; it only provides the session
// continuity the assignment engine depends on.
func (sm *SessionMiddleware) EnsureSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(SessionCookieName)
		if err != nil || !identity.IsValidSessionID(sid) {
			sid = identity.GenerateSessionID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookieName, sid, sessionCookieMaxAge, "/", "", sm.secure, false)
			sm.log.Debug("Issued new session cookie", "session_id", sid)
		}

		c.Header(SessionHeaderName, sid)
		c.Request = c.Request.WithContext(sessiondata.WithSessionID(c.Request.Context(), sid))
		c.Next()
	}
}
