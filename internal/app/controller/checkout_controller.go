package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/bazcar/bazcar-backend/internal/app/service"
	apperrors "github.com/bazcar/bazcar-backend/internal/errors"
	"github.com/bazcar/bazcar-backend/internal/middleware"
)

type CheckoutController struct {
	checkoutService service.CheckoutService
}

func NewCheckoutController(checkoutService service.CheckoutService) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
	}
}

type ConfirmCheckoutRequest struct {
	Contact *model.Contact `json:"contact"`
}

// GetCheckout returns the checkout summary
// GET /api/v1/checkout
func (ctrl *CheckoutController) GetCheckout(c *gin.Context) {
	c.JSON(http.StatusOK, ctrl.checkoutService.Review(c.Request.Context(), sessionID(c)))
}

// ConfirmCheckout moves the checkout to confirming. The body is optional;
// without a contact the first item's contact is used.
// POST /api/v1/checkout/confirm
func (ctrl *CheckoutController) ConfirmCheckout(c *gin.Context) {
	var req ConfirmCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.GetLoggerFromContext(c).Warn("Invalid confirm request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Некорректные данные")
		return
	}

	view, err := ctrl.checkoutService.Confirm(c.Request.Context(), sessionID(c), req.Contact)
	if err != nil {
		respondError(c, err, "", "confirm checkout")
		return
	}

	c.JSON(http.StatusOK, view)
}

// SubmitCheckout sends the cart to the booking API
// POST /api/v1/checkout/submit
func (ctrl *CheckoutController) SubmitCheckout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	outcome, err := ctrl.checkoutService.Submit(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err, "", "submit checkout")
		return
	}

	log.Info("Checkout submitted", map[string]interface{}{
		"items_count": outcome.Result.ItemsCount,
		"total_price": outcome.Result.TotalPrice,
	})

	c.JSON(http.StatusOK, outcome)
}
