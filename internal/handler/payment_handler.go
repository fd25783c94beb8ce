package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"classifieds/internal/errors"
	"classifieds/internal/middleware"
	"classifieds/internal/service"
)

const maxWebhookBody = 1 << 20

// PaymentHandler handles premium ad payment endpoints.
type PaymentHandler struct {
	paymentService service.PaymentService
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreateSessionRequest starts a premium checkout.
type CreateSessionRequest struct {
	AdID      *string `json:"ad_id"`
	OriginURL string  `json:"origin_url"`
}

// CheckoutResponse tells the client where to send the user.
type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// WebhookResponse acknowledges a provider notification.
type WebhookResponse struct {
	Status string `json:"status"`
}

// CreateSession godoc
// @Summary Open a premium ad checkout
// @Description Fixed price of 10.00 USD. The ad is upgraded once payment is confirmed.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateSessionRequest true "Checkout request"
// @Success 200 {object} CheckoutResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /payment/create-session [post]
func (h *PaymentHandler) CreateSession(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := h.paymentService.CreateSession(c.Request().Context(), user.UserID, req.AdID, req.OriginURL)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, CheckoutResponse{URL: res.URL, SessionID: res.SessionID})
}

// Status godoc
// @Summary Poll a checkout
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param session_id path string true "Provider checkout session id"
// @Success 200 {object} TransactionResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /payment/status/{session_id} [get]
func (h *PaymentHandler) Status(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	txn, err := h.paymentService.PollStatus(c.Request().Context(), c.Param("session_id"), user.UserID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toTransactionResponse(txn))
}

// StripeWebhook godoc
// @Summary Payment provider webhook
// @Tags payments
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Webhook signature"
// @Success 200 {object} WebhookResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /webhook/stripe [post]
func (h *PaymentHandler) StripeWebhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.paymentService.HandleWebhook(c.Request().Context(), payload, c.Request().Header.Get("Stripe-Signature")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Detail: err.Error(),
			Code:   "WEBHOOK_ERROR",
		})
	}
	return c.JSON(http.StatusOK, WebhookResponse{Status: "success"})
}
