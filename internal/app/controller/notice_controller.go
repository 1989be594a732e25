package controller

import (
	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/bazcar/bazcar-backend/internal/middleware"
	"github.com/bazcar/bazcar-backend/internal/websocket"
)

type NoticeController struct {
	hub      *websocket.Hub
	upgrader *gorillaws.Upgrader
}

func NewNoticeController(hub *websocket.Hub, allowedOrigins []string) *NoticeController {
	return &NoticeController{
		hub:      hub,
		upgrader: websocket.NewUpgrader(allowedOrigins),
	}
}

// Connect upgrades to a WebSocket that receives the session's notices
// GET /api/v1/ws/notices
func (ctrl *NoticeController) Connect(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	sid := sessionID(c)

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already wrote the error response
		log.Warn("WebSocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	client := websocket.NewClient(ctrl.hub, &websocket.Conn{Conn: conn}, sid)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
