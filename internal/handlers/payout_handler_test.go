package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arman-d/MentorAppBack/internal/models"
	"github.com/arman-d/MentorAppBack/internal/services"
)

type stubSettlementService struct {
	requestResult *models.PayoutRequest
	requestErr    error
	updateResult  *models.PayoutRequest
	updateErr     error
	listResult    []models.PayoutRequest
	listErr       error
	pending       decimal.Decimal
	available     decimal.Decimal
	balanceErr    error
	lastAmount    decimal.Decimal
	lastStatus    string
}

func (s *stubSettlementService) RequestWithdrawal(_ context.Context, _ uuid.UUID, amount decimal.Decimal) (*models.PayoutRequest, error) {
	s.lastAmount = amount
	return s.requestResult, s.requestErr
}

func (s *stubSettlementService) UpdateWithdrawalStatus(_ context.Context, _ string, _ uuid.UUID, newStatus string, _ *string) (*models.PayoutRequest, error) {
	s.lastStatus = newStatus
	return s.updateResult, s.updateErr
}

func (s *stubSettlementService) ListWithdrawals(_ context.Context, _ uuid.UUID) ([]models.PayoutRequest, error) {
	return s.listResult, s.listErr
}

func (s *stubSettlementService) Balance(_ context.Context, _ uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	return s.pending, s.available, s.balanceErr
}

func payoutTestApp(service settlementApplicationService, role string) *fiber.App {
	handler := &PayoutHandler{service: service}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", uuid.New().String())
		return c.Next()
	})
	app.Get("/api/v1/payouts/balance", handler.Balance)
	app.Post("/api/v1/payouts/withdrawals", handler.RequestWithdrawal)
	app.Put("/api/v1/payouts/withdrawals/:id/status", handler.UpdateWithdrawalStatus)
	return app
}

func TestRequestWithdrawalParsesDecimalAmount(t *testing.T) {
	service := &stubSettlementService{
		requestResult: &models.PayoutRequest{ID: uuid.New(), Status: models.PayoutRequestPending},
	}
	app := payoutTestApp(service, "mentor")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payouts/withdrawals", strings.NewReader(`{"amount": "300.50"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if !service.lastAmount.Equal(decimal.RequireFromString("300.50")) {
		t.Fatalf("expected amount 300.50, got %s", service.lastAmount)
	}
}

func TestRequestWithdrawalBelowMinimumIsBadRequest(t *testing.T) {
	service := &stubSettlementService{requestErr: services.ErrBelowMinimum}
	app := payoutTestApp(service, "mentor")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payouts/withdrawals", strings.NewReader(`{"amount": "100"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRequestWithdrawalInsufficientBalanceIsUnprocessable(t *testing.T) {
	service := &stubSettlementService{requestErr: services.ErrInsufficientBalance}
	app := payoutTestApp(service, "mentor")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payouts/withdrawals", strings.NewReader(`{"amount": "500"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestRequestWithdrawalForbiddenForMentees(t *testing.T) {
	service := &stubSettlementService{}
	app := payoutTestApp(service, "mentee")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payouts/withdrawals", strings.NewReader(`{"amount": "500"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestUpdateWithdrawalStatusRequiresAdmin(t *testing.T) {
	service := &stubSettlementService{}
	app := payoutTestApp(service, "mentor")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/payouts/withdrawals/"+uuid.New().String()+"/status",
		strings.NewReader(`{"status": "processing"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestUpdateWithdrawalStatusRejectsUnknownStatus(t *testing.T) {
	service := &stubSettlementService{}
	app := payoutTestApp(service, "admin")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/payouts/withdrawals/"+uuid.New().String()+"/status",
		strings.NewReader(`{"status": "vanished"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestBalanceReturnsBothBuckets(t *testing.T) {
	service := &stubSettlementService{
		pending:   decimal.RequireFromString("51.00"),
		available: decimal.RequireFromString("120.25"),
	}
	app := payoutTestApp(service, "mentor")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payouts/balance", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
