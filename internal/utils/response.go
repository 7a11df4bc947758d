package utils

import "github.com/gofiber/fiber/v2"

// ErrorBody is the payload returned for every failed request.
type ErrorBody struct {
	Error string `json:"error"`
}

// SendJSON writes payload with the given status.
func SendJSON(c *fiber.Ctx, status int, payload interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(payload)
}

// SendSuccess writes payload with status 200.
func SendSuccess(c *fiber.Ctx, payload interface{}) error {
	return SendJSON(c, fiber.StatusOK, payload)
}

// SendError writes an error body with the given status code.
func SendError(c *fiber.Ctx, status int, message string) error {
	if message == "" {
		message = "error"
	}

	return c.Status(status).JSON(ErrorBody{Error: message})
}
