package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/arman-d/MentorAppBack/internal/models"
	"github.com/arman-d/MentorAppBack/internal/services"
)

type disputeApplicationService interface {
	Open(ctx context.Context, raisedBy uuid.UUID, sessionID uuid.UUID, reason string) (*models.Dispute, error)
	Resolve(ctx context.Context, role string, disputeID uuid.UUID, outcome string) (*models.Dispute, error)
	Get(ctx context.Context, actorID uuid.UUID, role string, disputeID uuid.UUID) (*models.Dispute, error)
}

type DisputeHandler struct {
	service disputeApplicationService
}

func NewDisputeHandler(service *services.DisputeService) *DisputeHandler {
	return &DisputeHandler{service: service}
}

type openDisputeRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

type resolveDisputeRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=resolved rejected"`
}

func (h *DisputeHandler) Open(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != models.RoleMentee {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	menteeID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req openDisputeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	dispute, err := h.service.Open(c.Context(), menteeID, sessionID, strings.TrimSpace(req.Reason))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"dispute": dispute})
}

func (h *DisputeHandler) Resolve(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	disputeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid dispute id"})
	}

	var req resolveDisputeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	dispute, err := h.service.Resolve(c.Context(), role, disputeID, req.Outcome)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"dispute": dispute})
}

func (h *DisputeHandler) Get(c *fiber.Ctx) error {
	actorID, role, ok := sessionActor(c)
	if !ok {
		return nil
	}
	disputeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid dispute id"})
	}

	dispute, err := h.service.Get(c.Context(), actorID, role, disputeID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"dispute": dispute})
}
