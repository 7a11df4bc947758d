package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/prompt-arena/internal/middleware"
	"github.com/noah-isme/prompt-arena/internal/service"
	"github.com/noah-isme/prompt-arena/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// handleServiceError writes the status and message mapped from err.
func handleServiceError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	status := service.StatusForError(err)
	if status >= fiber.StatusInternalServerError {
		requestLogger(logger, c).Error().Err(err).Int("status", status).Msg("request failed")
	}
	return utils.SendError(c, status, service.PublicMessage(err))
}
