package sync

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"epubhub/internal/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced by the router; tokens gate access
	},
}

// WSHandler streams the caller's UserEvents. It must run behind
// auth.AuthMiddleware, which accepts the token as a query parameter.
func WSHandler(hub *Hub, logger *log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Printf("[ws] upgrade: %v", err)
			return
		}

		userID := claims.UserID
		hub.AddWS(userID, ws)
		hub.WelcomeWS(userID, ws)
		logger.Printf("[ws] client connected (user %s)", userID)

		// Keep connection alive (ignore incoming messages)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(userID, ws)
		logger.Printf("[ws] client disconnected (user %s)", userID)
	}
}
