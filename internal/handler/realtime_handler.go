package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/prompt-arena/internal/middleware"
	"github.com/noah-isme/prompt-arena/internal/service"
	"github.com/noah-isme/prompt-arena/internal/utils"
)

// RealtimeHandler wires the live leaderboard websocket and its initial state.
type RealtimeHandler struct {
	service service.RealtimeService
	logger  zerolog.Logger
}

// NewRealtimeHandler creates a realtime handler instance.
func NewRealtimeHandler(service service.RealtimeService, logger zerolog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		service: service,
		logger:  logger.With().Str("component", "realtime_handler").Logger(),
	}
}

// Register binds the realtime routes under the provided router group.
func (h *RealtimeHandler) Register(router fiber.Router) {
	router.Get("/ws/leaderboard", h.snapshot)

	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("correlation_id", middleware.GetCorrelationID(c))
			c.Locals("remote_addr", c.IP())
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *RealtimeHandler) handleConnection(conn *websocket.Conn) {
	correlation, _ := conn.Locals("correlation_id").(string)
	remote := fmt.Sprint(conn.Locals("remote_addr"))

	// The request context ends with the upgrade; the connection gets its own.
	opts := service.RealtimeConnectionOptions{
		CorrelationID: correlation,
		RemoteAddr:    remote,
		Context:       middleware.ContextWithCorrelation(context.Background(), correlation),
	}

	h.logger.Info().Str("remote_addr", remote).Str("correlation_id", correlation).Msg("realtime websocket connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("remote_addr", remote).Str("correlation_id", correlation).Msg("realtime websocket disconnected")
}

func (h *RealtimeHandler) snapshot(c *fiber.Ctx) error {
	entries, err := h.service.Snapshot(requestContext(c))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, entries)
}
