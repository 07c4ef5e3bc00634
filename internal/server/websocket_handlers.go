package server

import (
	"fruitmap/internal/featureflags"
	"fruitmap/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// LiveMapUpgrade gates GET /api/ws/trees: the live_map flag must be on and
// the request must be a WebSocket upgrade.
func (s *Server) LiveMapUpgrade(c *fiber.Ctx) error {
	if !s.featureFlags.Enabled(featureflags.LiveMap, "") {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Live map feed is disabled"))
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("WebSocket upgrade required"))
	}
	return c.Next()
}

// LiveMapHandler streams tree lifecycle events. The feed is read-only.
func (s *Server) LiveMapHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		s.hub.Serve(conn)
	})
}
