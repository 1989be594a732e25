package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/bazcar/bazcar-backend/internal/app/service"
	apperrors "github.com/bazcar/bazcar-backend/internal/errors"
	"github.com/bazcar/bazcar-backend/internal/middleware"
)

type QRController struct {
	qrService service.QRService
}

func NewQRController(qrService service.QRService) *QRController {
	return &QRController{
		qrService: qrService,
	}
}

type VerifyQRRequest struct {
	Code string `json:"code" binding:"required"`
}

// VerifyQR checks a discount code and remembers it for the session when valid.
// Used and unknown codes are reported in the body, not as HTTP errors.
// POST /api/v1/qr/verify
func (ctrl *QRController) VerifyQR(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req VerifyQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "Введите QR код")
		return
	}

	result, err := ctrl.qrService.Verify(c.Request.Context(), sessionID(c), req.Code)
	if err != nil {
		respondError(c, err, "qr_code", "verify qr code")
		return
	}

	if result.Status != model.QRStatusSuccess {
		log.Info("QR code rejected", map[string]interface{}{
			"status": result.Status,
		})
	}

	c.JSON(http.StatusOK, result)
}

// GetQR returns the session's verified discount
// GET /api/v1/qr
func (ctrl *QRController) GetQR(c *gin.Context) {
	discount, ok := ctrl.qrService.Current(c.Request.Context(), sessionID(c))
	if !ok {
		apperrors.NotFound(c, apperrors.ResourceNotFound, "QR-код не применён")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"discount": discount,
	})
}

// ForgetQR removes the session's discount
// DELETE /api/v1/qr
func (ctrl *QRController) ForgetQR(c *gin.Context) {
	if err := ctrl.qrService.Forget(c.Request.Context(), sessionID(c)); err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to forget qr code", err)
		apperrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "QR-код удалён",
	})
}
