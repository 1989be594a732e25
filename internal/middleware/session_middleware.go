package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/bazcar/bazcar-backend/internal/errors"
	"github.com/bazcar/bazcar-backend/pkg/util"
)

const (
	SessionIDKey       = "session_id"
	SessionCookieName  = "bazcar_session"
	SessionTokenHeader = "X-Session-Token"
)

// SessionMiddleware identifies anonymous visitors. Every request ends up
// with a session id: a valid token is reused, anything else mints a new one.
type SessionMiddleware struct {
	secret       string
	ttl          time.Duration
	secureCookie bool
}

func NewSessionMiddleware(secret string, ttl time.Duration, secureCookie bool) *SessionMiddleware {
	return &SessionMiddleware{
		secret:       secret,
		ttl:          ttl,
		secureCookie: secureCookie,
	}
}

// Identify resolves the session from the cookie or header, issuing a fresh
// token when needed.
func (m *SessionMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token := c.GetHeader(SessionTokenHeader)
		if token == "" {
			// WebSocket clients cannot set headers
			token = c.Query("session")
		}
		if token == "" {
			token, _ = c.Cookie(SessionCookieName)
		}

		if token != "" {
			claims, err := util.ValidateSessionToken(token, m.secret)
			if err == nil {
				c.Set(SessionIDKey, claims.SessionID)
				c.Next()
				return
			}
			if errors.Is(err, util.ErrExpiredToken) {
				log.Debug("Session token expired, issuing a new one", nil)
			} else {
				log.Warn("Rejected session token", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}

		sessionID := util.NewSessionID()
		issued, err := util.GenerateSessionToken(sessionID, m.secret, m.ttl)
		if err != nil {
			log.Error("Failed to issue session token", err)
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.SessionInvalid, "Не удалось создать сессию")
			c.Abort()
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookieName, issued, int(m.ttl.Seconds()), "/", "", m.secureCookie, true)
		c.Header(SessionTokenHeader, issued)
		c.Set(SessionIDKey, sessionID)

		log.Debug("New session issued", map[string]interface{}{
			"session_id": sessionID,
		})

		c.Next()
	}
}

// GetSessionID returns the session id set by Identify
func GetSessionID(c *gin.Context) (string, bool) {
	sessionID, exists := c.Get(SessionIDKey)
	if !exists {
		return "", false
	}
	id, ok := sessionID.(string)
	return id, ok && id != ""
}

// MustGetSessionID panics when the route is not behind Identify
func MustGetSessionID(c *gin.Context) string {
	id, ok := GetSessionID(c)
	if !ok {
		panic("session id not set: route is missing SessionMiddleware")
	}
	return id
}
