package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ashwinsom/curryleaf/notify"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSController struct {
	Hub *notify.Hub
}

func NewWSController(hub *notify.Hub) *WSController {
	return &WSController{Hub: hub}
}

// AdminFeed -> websocket pushing order/alert/inventory events to the
// back-office dashboard. Auth middleware runs before the upgrade.
func (wc *WSController) AdminFeed(c *gin.Context) {
	role, exists := c.Get("role")
	if !exists || role != "admin" {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	wc.Hub.Register(ws)

	// Reader loop only detects disconnects; clients never send data.
	go func() {
		defer wc.Hub.Unregister(ws)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
