package errors

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bazcar/bazcar-backend/internal/app/service"
	"github.com/bazcar/bazcar-backend/pkg/bookingapi"
)

// ErrorInfo describes how an error is reported to the client
type ErrorInfo struct {
	Status  int    // HTTP status
	Code    string // error code (see codes.go)
	Message string // user-facing message
}

// ParseError maps an error to a status, code and message.
// Internal details are never exposed; booking API details are, since they
// are written for the visitor.
func ParseError(err error, resource string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalServerError,
			Message: "Произошла ошибка сервера",
		}
	}

	// 1. Validation
	if errors.Is(err, service.ErrValidation) {
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationInvalidInput, Message: "Некорректные данные"}
	}

	// 2. Domain errors
	switch {
	case errors.Is(err, service.ErrCarNotFound):
		return ErrorInfo{Status: http.StatusNotFound, Code: CarNotFound, Message: "Автомобиль не найден"}
	case errors.Is(err, service.ErrCartItemNotFound):
		return ErrorInfo{Status: http.StatusNotFound, Code: CartItemNotFound, Message: "Позиция корзины не найдена"}
	case errors.Is(err, service.ErrDuplicateCartItem):
		return ErrorInfo{Status: http.StatusConflict, Code: CartDuplicateItem, Message: "Такой автомобиль с этими датами уже в корзине"}
	case errors.Is(err, service.ErrCartEmpty):
		return ErrorInfo{Status: http.StatusConflict, Code: CartEmpty, Message: "Корзина пуста"}
	case errors.Is(err, service.ErrCheckoutNotConfirmed):
		return ErrorInfo{Status: http.StatusConflict, Code: CheckoutNotConfirmed, Message: "Сначала подтвердите заказ"}
	case errors.Is(err, service.ErrCheckoutInProgress):
		return ErrorInfo{Status: http.StatusConflict, Code: CheckoutInProgress, Message: "Заказ уже отправляется"}
	case errors.Is(err, service.ErrCheckoutSubmitted):
		return ErrorInfo{Status: http.StatusConflict, Code: CheckoutSubmitted, Message: "Заказ уже отправлен"}
	case errors.Is(err, service.ErrSuperseded), errors.Is(err, context.Canceled):
		return ErrorInfo{Status: StatusClientClosedRequest, Code: InternalCanceled, Message: "Запрос отменён"}
	}

	// 3. Booking API
	var apiErr *bookingapi.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusNotFound {
			return ErrorInfo{Status: http.StatusNotFound, Code: ResourceNotFound, Message: getNotFoundMessage(resource)}
		}
		msg := strings.TrimSpace(apiErr.Detail)
		if msg == "" {
			msg = "Сервис бронирования отклонил запрос"
		}
		status := http.StatusBadGateway
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			status = http.StatusUnprocessableEntity
		}
		return ErrorInfo{Status: status, Code: CheckoutRejected, Message: msg}
	}
	if errors.Is(err, bookingapi.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Status: http.StatusNotFound, Code: ResourceNotFound, Message: getNotFoundMessage(resource)}
	}
	if errors.Is(err, bookingapi.ErrNetworkError) ||
		errors.Is(err, bookingapi.ErrInvalidResponse) ||
		errors.Is(err, context.DeadlineExceeded) {
		return ErrorInfo{
			Status:  http.StatusBadGateway,
			Code:    InternalExternalAPI,
			Message: "Сервис бронирования недоступен. Попробуйте позже",
		}
	}

	// 4. Fallback
	return ErrorInfo{
		Status:  http.StatusInternalServerError,
		Code:    InternalServerError,
		Message: "Произошла ошибка сервера. Попробуйте позже",
	}
}

// ParseAndRespond writes err as a JSON error response. Superseded requests get a bare
// 499, validation errors carry their fields and notice.
func ParseAndRespond(c *gin.Context, err error, resource string) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		RespondWithValidationError(c, verr.Fields, verr.Notice)
		return
	}

	info := ParseError(err, resource)
	if info.Status == StatusClientClosedRequest {
		Dropped(c)
		return
	}
	RespondWithError(c, info.Status, info.Code, info.Message)
}

func getNotFoundMessage(resource string) string {
	switch resource {
	case "car":
		return "Автомобиль не найден"
	case "cart_item":
		return "Позиция корзины не найдена"
	case "qr_code":
		return "QR-код не найден"
	default:
		return "Запрошенный ресурс не найден"
	}
}
