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

type rescheduleApplicationService interface {
	Propose(ctx context.Context, requesterID uuid.UUID, sessionID uuid.UUID, newStart time.Time, reason string) (*models.RescheduleRequest, error)
	Approve(ctx context.Context, approverID uuid.UUID, role string, requestID uuid.UUID) (*models.Session, error)
	Reject(ctx context.Context, approverID uuid.UUID, role string, requestID uuid.UUID) (*models.Session, error)
	GetRequest(ctx context.Context, actorID uuid.UUID, role string, requestID uuid.UUID) (*models.RescheduleRequest, error)
}

type RescheduleHandler struct {
	service rescheduleApplicationService
}

func NewRescheduleHandler(service *services.RescheduleService) *RescheduleHandler {
	return &RescheduleHandler{service: service}
}

type proposeRescheduleRequest struct {
	NewStartTime string `json:"new_start_time" validate:"required"`
	Reason       string `json:"reason" validate:"required,min=10,max=500"`
}

func (h *RescheduleHandler) Propose(c *fiber.Ctx) error {
	actorID, _, ok := sessionActor(c)
	if !ok {
		return nil
	}
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req proposeRescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	newStart, err := time.Parse(time.RFC3339, strings.TrimSpace(req.NewStartTime))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "new_start_time must be a valid RFC3339 timestamp"})
	}

	request, err := h.service.Propose(c.Context(), actorID, sessionID, newStart, strings.TrimSpace(req.Reason))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"reschedule_request": request})
}

func (h *RescheduleHandler) Approve(c *fiber.Ctx) error {
	return h.resolve(c, true)
}

func (h *RescheduleHandler) Reject(c *fiber.Ctx) error {
	return h.resolve(c, false)
}

func (h *RescheduleHandler) resolve(c *fiber.Ctx, approve bool) error {
	actorID, role, ok := sessionActor(c)
	if !ok {
		return nil
	}
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	var session *models.Session
	if approve {
		session, err = h.service.Approve(c.Context(), actorID, role, requestID)
	} else {
		session, err = h.service.Reject(c.Context(), actorID, role, requestID)
	}
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *RescheduleHandler) GetRequest(c *fiber.Ctx) error {
	actorID, role, ok := sessionActor(c)
	if !ok {
		return nil
	}
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	request, err := h.service.GetRequest(c.Context(), actorID, role, requestID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"reschedule_request": request,
		"expired":            services.IsExpired(request, time.Now().UTC()),
	})
}
