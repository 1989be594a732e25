package controller

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bazcar/bazcar-backend/internal/app/service"
	apperrors "github.com/bazcar/bazcar-backend/internal/errors"
	"github.com/bazcar/bazcar-backend/internal/middleware"
)

// respondError logs err at a level matching its outcome and writes the
// error response. Superseded fetches are dropped quietly.
func respondError(c *gin.Context, err error, resource, action string) {
	log := middleware.GetLoggerFromContext(c)

	if errors.Is(err, service.ErrSuperseded) || c.Request.Context().Err() != nil {
		log.Debug("Request superseded, dropping result", map[string]interface{}{
			"action": action,
		})
		apperrors.Dropped(c)
		return
	}

	info := apperrors.ParseError(err, resource)
	fields := map[string]interface{}{
		"action": action,
		"code":   info.Code,
	}
	if info.Status >= 500 {
		log.Error("Request failed", err, fields)
	} else {
		fields["error"] = err.Error()
		log.Warn("Request rejected", fields)
	}
	apperrors.ParseAndRespond(c, err, resource)
}

// sessionID is set by SessionMiddleware on every API route
func sessionID(c *gin.Context) string {
	return middleware.MustGetSessionID(c)
}
