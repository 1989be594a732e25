package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bazcar/bazcar-backend/internal/app/service"
	apperrors "github.com/bazcar/bazcar-backend/internal/errors"
	"github.com/bazcar/bazcar-backend/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CartController struct {
	cartService     service.CartService
	checkoutService service.CheckoutService
	exporter        *service.QuoteExporter
}

func NewCartController(cartService service.CartService, checkoutService service.CheckoutService, exporter *service.QuoteExporter) *CartController {
	return &CartController{
		cartService:     cartService,
		checkoutService: checkoutService,
		exporter:        exporter,
	}
}

// GetCart returns the session's cart
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, ctrl.cartService.Items(c.Request.Context(), sessionID(c)))
}

// AddToCart prices a configuration and adds it to the cart. Adding the same
// configuration twice is not an error; the existing item is kept.
// POST /api/v1/cart
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	sid := sessionID(c)

	var req service.CartInput
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Некорректные данные")
		return
	}

	result, err := ctrl.cartService.Add(c.Request.Context(), sid, req)
	if err != nil {
		respondError(c, err, "car", "add to cart")
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// UpdateCartItem changes an item's dates, delivery, services or contact
// PUT /api/v1/cart/:id
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	itemID := c.Param("id")

	var patch service.CartItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		log.Warn("Invalid update cart request", map[string]interface{}{
			"item_id": itemID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Некорректные данные")
		return
	}

	result, err := ctrl.cartService.Update(c.Request.Context(), sessionID(c), itemID, patch)
	if err != nil {
		respondError(c, err, "cart_item", "update cart item")
		return
	}

	c.JSON(http.StatusOK, result)
}

// RemoveFromCart removes one item. Unknown ids leave the cart unchanged.
// DELETE /api/v1/cart/:id
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	c.JSON(http.StatusOK, ctrl.cartService.Remove(c.Request.Context(), sessionID(c), c.Param("id")))
}

// ClearCart empties the cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	c.JSON(http.StatusOK, ctrl.cartService.Clear(c.Request.Context(), sessionID(c)))
}

// ExportCart downloads the cart with its discount as a spreadsheet
// GET /api/v1/cart/export
func (ctrl *CartController) ExportCart(c *gin.Context) {
	view := ctrl.checkoutService.Review(c.Request.Context(), sessionID(c))

	data, err := ctrl.exporter.Export(view)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to export cart", err)
		apperrors.InternalError(c, "Не удалось сформировать расчёт")
		return
	}

	filename := fmt.Sprintf("bazcar-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
