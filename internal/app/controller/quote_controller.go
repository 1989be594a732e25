package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/bazcar/bazcar-backend/internal/app/pricing"
	"github.com/bazcar/bazcar-backend/internal/app/service"
	apperrors "github.com/bazcar/bazcar-backend/internal/errors"
	"github.com/bazcar/bazcar-backend/internal/middleware"
)

type QuoteController struct {
	cars service.CarProvider
	qr   service.QRService
}

func NewQuoteController(cars service.CarProvider, qr service.QRService) *QuoteController {
	return &QuoteController{
		cars: cars,
		qr:   qr,
	}
}

type QuoteRequest struct {
	CarID          int64    `json:"car_id" binding:"required,gt=0"`
	PickupDate     string   `json:"pickup_date"`
	ReturnDate     string   `json:"return_date"`
	DeliveryOption string   `json:"delivery_option"`
	Services       []string `json:"services"`
}

type QuoteResponse struct {
	pricing.Quote
	Discount          *model.Discount `json:"discount,omitempty"`
	DiscountAmount    int64           `json:"discount_amount"`
	TotalWithDiscount int64           `json:"total_with_discount"`
}

// Quote prices a configuration for the live preview of the booking form.
// Incomplete dates price at zero rather than failing.
// POST /api/v1/quote
func (ctrl *QuoteController) Quote(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	ctx := c.Request.Context()

	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid quote request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Некорректные данные")
		return
	}

	car, err := ctrl.cars.Car(ctx, req.CarID)
	if err != nil {
		respondError(c, err, "car", "quote")
		return
	}

	deliveryID := strings.TrimSpace(req.DeliveryOption)
	if deliveryID == "" {
		deliveryID = model.DeliveryPickup
	}
	delivery, ok := model.FindDeliveryOption(ctrl.cars.DeliveryOptions(), deliveryID)
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Неизвестный способ получения")
		return
	}

	quote := pricing.Calculate(pricing.Input{
		Car:        *car,
		PickupDate: strings.TrimSpace(req.PickupDate),
		ReturnDate: strings.TrimSpace(req.ReturnDate),
		Delivery:   delivery,
		Catalog:    ctrl.cars.ServiceCatalog(ctx),
		Selected:   model.NormalizeServices(req.Services),
	})

	resp := QuoteResponse{
		Quote:             quote,
		TotalWithDiscount: quote.TotalPrice,
	}
	if discount, ok := ctrl.qr.Current(ctx, sessionID(c)); ok {
		resp.Discount = discount
		resp.TotalWithDiscount, resp.DiscountAmount = pricing.ApplyDiscount(quote.TotalPrice, discount.Percent)
	}

	c.JSON(http.StatusOK, resp)
}
