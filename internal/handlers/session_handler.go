package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/arman-d/MentorAppBack/internal/models"
	"github.com/arman-d/MentorAppBack/internal/repository"
	"github.com/arman-d/MentorAppBack/internal/services"
)

type sessionApplicationService interface {
	BookSession(ctx context.Context, menteeID uuid.UUID, input services.BookSessionInput) (*models.SessionDetail, error)
	ConfirmPayment(ctx context.Context, actorID uuid.UUID, role string, sessionID uuid.UUID) (*models.SessionDetail, error)
	RequestJoin(ctx context.Context, actorID uuid.UUID, sessionID uuid.UUID) (string, error)
	Complete(ctx context.Context, actorID uuid.UUID, role string, sessionID uuid.UUID) (*models.SessionDetail, error)
	Cancel(ctx context.Context, actorID uuid.UUID, role string, sessionID uuid.UUID, reason string) (*models.SessionDetail, error)
	MarkNoShow(ctx context.Context, actorID uuid.UUID, role string, sessionID uuid.UUID) (*models.SessionDetail, error)
	GetSession(ctx context.Context, actorID uuid.UUID, role string, sessionID uuid.UUID) (*models.SessionDetail, error)
	ListSessions(ctx context.Context, actorID uuid.UUID, role string, filter repository.SessionListFilter) ([]models.SessionDetail, error)
}

type SessionHandler struct {
	service sessionApplicationService
}

func NewSessionHandler(service *services.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

type bookSessionRequest struct {
	SlotID      string `json:"slot_id" validate:"required,uuid"`
	SessionType string `json:"session_type" validate:"required,oneof=one_on_one group"`
	Provider    string `json:"provider"`
}

type cancelSessionRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

func (h *SessionHandler) BookSession(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != models.RoleMentee {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	menteeID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req bookSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	slotID, err := uuid.Parse(req.SlotID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot id"})
	}

	detail, err := h.service.BookSession(c.Context(), menteeID, services.BookSessionInput{
		SlotID:      slotID,
		SessionType: req.SessionType,
		Provider:    strings.TrimSpace(req.Provider),
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": detail})
}

func (h *SessionHandler) ConfirmPayment(c *fiber.Ctx) error {
	actorID, role, ok := sessionActor(c)
	if !ok {
		return nil
	}
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	detail, err := h.service.ConfirmPayment(c.Context(), actorID, role, sessionID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": detail})
}

func (h *SessionHandler) Join(c *fiber.Ctx) error {
	actorID, _, ok := sessionActor(c)
	if !ok {
		return nil
	}
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	link, err := h.service.RequestJoin(c.Context(), actorID, sessionID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"meeting_link": link})
}

func (h *SessionHandler) Complete(c *fiber.Ctx) error {
	actorID, role, ok := sessionActor(c)
	if !ok {
		return nil
	}
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	detail, err := h.service.Complete(c.Context(), actorID, role, sessionID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": detail})
}

func (h *SessionHandler) Cancel(c *fiber.Ctx) error {
	actorID, role, ok := sessionActor(c)
	if !ok {
		return nil
	}
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req cancelSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	detail, err := h.service.Cancel(c.Context(), actorID, role, sessionID, strings.TrimSpace(req.Reason))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": detail})
}

func (h *SessionHandler) MarkNoShow(c *fiber.Ctx) error {
	actorID, role, ok := sessionActor(c)
	if !ok {
		return nil
	}
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	detail, err := h.service.MarkNoShow(c.Context(), actorID, role, sessionID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": detail})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	actorID, role, ok := sessionActor(c)
	if !ok {
		return nil
	}
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	detail, err := h.service.GetSession(c.Context(), actorID, role, sessionID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": detail})
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	actorID, role, ok := sessionActor(c)
	if !ok {
		return nil
	}

	timeframe := strings.TrimSpace(c.Query("timeframe"))
	if timeframe != "" && timeframe != "upcoming" && timeframe != "past" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "timeframe must be upcoming or past"})
	}

	sessions, err := h.service.ListSessions(c.Context(), actorID, role, repository.SessionListFilter{
		Status:    strings.TrimSpace(c.Query("status")),
		Timeframe: timeframe,
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

// sessionActor authenticates any of the three roles and writes the failure
// response itself; per-operation authorization lives in the service layer.
func sessionActor(c *fiber.Ctx) (uuid.UUID, string, bool) {
	role, ok := parseRole(c)
	if !ok {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		return uuid.Nil, "", false
	}
	actorID, err := parseActorID(c)
	if err != nil {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		return uuid.Nil, "", false
	}
	return actorID, role, true
}
