package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/arman-d/MentorAppBack/internal/models"
	"github.com/arman-d/MentorAppBack/internal/services"
)

type slotApplicationService interface {
	CreateSlot(ctx context.Context, mentorID uuid.UUID, start time.Time, durationMin int) (*models.TimeSlot, error)
	ListOpenSlots(ctx context.Context, mentorID uuid.UUID) ([]models.TimeSlot, error)
	DeleteSlot(ctx context.Context, slotID, mentorID uuid.UUID) error
}

type SlotHandler struct {
	service slotApplicationService
}

func NewSlotHandler(service *services.SlotService) *SlotHandler {
	return &SlotHandler{service: service}
}

type createSlotRequest struct {
	StartTime   string `json:"start_time" validate:"required"`
	DurationMin int    `json:"duration_min" validate:"required,oneof=30 60"`
}

func (h *SlotHandler) CreateSlot(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != models.RoleMentor {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	mentorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_time must be a valid RFC3339 timestamp"})
	}

	slot, err := h.service.CreateSlot(c.Context(), mentorID, start, req.DurationMin)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"slot": slot})
}

func (h *SlotHandler) ListOpenSlots(c *fiber.Ctx) error {
	mentorID, err := uuid.Parse(c.Query("mentor_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "mentor_id must be a valid id"})
	}

	slots, err := h.service.ListOpenSlots(c.Context(), mentorID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"slots": slots})
}

func (h *SlotHandler) DeleteSlot(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != models.RoleMentor {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	mentorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	slotID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot id"})
	}

	if err := h.service.DeleteSlot(c.Context(), slotID, mentorID); err != nil {
		return mapServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
