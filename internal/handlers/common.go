package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arman-d/MentorAppBack/internal/services"
)

var validate = validator.New()

// parseActorID reads the authenticated user's id set by the auth middleware.
func parseActorID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, errors.New("missing user id")
	}
	return uuid.Parse(userIDStr)
}

func parseRole(c *fiber.Ctx) (string, bool) {
	role, ok := c.Locals("role").(string)
	return role, ok
}

// mapServiceError translates the service layer's sentinel errors into HTTP
// responses. Unknown errors become a generic 500 so internals never leak.
func mapServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Conflicting state"})
	case errors.Is(err, services.ErrTooSoon):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Too close to the scheduled time"})
	case errors.Is(err, services.ErrGone):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "No longer available"})
	case errors.Is(err, services.ErrBelowMinimum):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Amount is below the minimum"})
	case errors.Is(err, services.ErrInsufficientBalance):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Insufficient balance"})
	case errors.Is(err, services.ErrPaymentFailed):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "Payment failed"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process request"})
	}
}
