package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arman-d/MentorAppBack/internal/models"
	"github.com/arman-d/MentorAppBack/internal/services"
)

type settlementApplicationService interface {
	RequestWithdrawal(ctx context.Context, mentorID uuid.UUID, amount decimal.Decimal) (*models.PayoutRequest, error)
	UpdateWithdrawalStatus(ctx context.Context, role string, payoutID uuid.UUID, newStatus string, adminNotes *string) (*models.PayoutRequest, error)
	ListWithdrawals(ctx context.Context, mentorID uuid.UUID) ([]models.PayoutRequest, error)
	Balance(ctx context.Context, userID uuid.UUID) (pending, available decimal.Decimal, err error)
}

type PayoutHandler struct {
	service settlementApplicationService
}

func NewPayoutHandler(service *services.SettlementService) *PayoutHandler {
	return &PayoutHandler{service: service}
}

type requestWithdrawalRequest struct {
	Amount string `json:"amount" validate:"required"`
}

type updateWithdrawalRequest struct {
	Status     string  `json:"status" validate:"required,oneof=processing completed failed cancelled"`
	AdminNotes *string `json:"admin_notes,omitempty"`
}

func (h *PayoutHandler) Balance(c *fiber.Ctx) error {
	actorID, _, ok := sessionActor(c)
	if !ok {
		return nil
	}

	pending, available, err := h.service.Balance(c.Context(), actorID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"pending_balance":   pending.StringFixed(2),
		"available_balance": available.StringFixed(2),
	})
}

func (h *PayoutHandler) RequestWithdrawal(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != models.RoleMentor {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	mentorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req requestWithdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be a decimal string"})
	}

	payout, err := h.service.RequestWithdrawal(c.Context(), mentorID, amount)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payout_request": payout})
}

func (h *PayoutHandler) ListWithdrawals(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != models.RoleMentor {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	mentorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	payouts, err := h.service.ListWithdrawals(c.Context(), mentorID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"payout_requests": payouts})
}

func (h *PayoutHandler) UpdateWithdrawalStatus(c *fiber.Ctx) error {
	role, ok := parseRole(c)
	if !ok || role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	payoutID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payout id"})
	}

	var req updateWithdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	payout, err := h.service.UpdateWithdrawalStatus(c.Context(), role, payoutID, req.Status, req.AdminNotes)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"payout_request": payout})
}
