package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "github.com/banterhq/banter/internal/errors"
	"github.com/banterhq/banter/store"
)

type verifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
	UserID    string `json:"userId"`
}

type verifyPaymentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CreateOrder handles POST /api/create-order, delegating to the payment
// gateway and forwarding the order object unmodified.
func (s *APIV1Service) CreateOrder(c echo.Context) error {
	if s.Payment == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "payment gateway is not configured"})
	}

	order, err := s.Payment.CreateOrder(c.Request().Context(), s.Profile.OrderAmount, s.Profile.OrderCurrency)
	if err != nil {
		s.logger.Error("failed to create payment order", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create order"})
	}
	return c.JSON(http.StatusOK, order)
}

// VerifyPayment handles POST /api/verify-payment. A matching signature
// upgrades the user to the pro plan; a mismatch changes nothing.
func (s *APIV1Service) VerifyPayment(c echo.Context) error {
	if s.Payment == nil {
		return c.JSON(http.StatusServiceUnavailable, verifyPaymentResponse{Success: false, Error: "payment gateway is not configured"})
	}

	req := &verifyPaymentRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, verifyPaymentResponse{Success: false, Error: "invalid request body"})
	}
	if req.UserID == "" {
		return c.JSON(http.StatusBadRequest, verifyPaymentResponse{Success: false, Error: "userId is required"})
	}

	if !s.Payment.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		s.logger.Warn("payment signature mismatch",
			"user_id", req.UserID,
			"order_id", req.OrderID,
			"error_code", string(apperrors.ErrCodeInvalidPaymentSignature))
		return c.JSON(http.StatusBadRequest, verifyPaymentResponse{Success: false, Error: "Invalid Signature"})
	}

	plan := store.UserPlanPro
	subscriptionTs := time.Now().Unix()
	if _, err := s.Store.UpdateUser(c.Request().Context(), &store.UpdateUser{
		ID:             req.UserID,
		Plan:           &plan,
		SubscriptionTs: &subscriptionTs,
	}); err != nil {
		s.logger.Error("failed to upgrade user plan", "user_id", req.UserID, "error", err)
		return errorJSON(c, err)
	}

	s.logger.Info("user upgraded to pro", "user_id", req.UserID, "order_id", req.OrderID)
	return c.JSON(http.StatusOK, verifyPaymentResponse{Success: true, Message: "Payment Verified"})
}
