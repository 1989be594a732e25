package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusClientClosedRequest reports a request whose result was dropped
// because the client moved on.
const StatusClientClosedRequest = 499

// ErrorResponse is the standard error body
type ErrorResponse struct {
	Error   string      `json:"error"`            // error code (see codes.go)
	Message string      `json:"message"`          // user-facing message
	Notice  interface{} `json:"notice,omitempty"` // toast the site should show
}

// RespondWithError writes an error response
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// RespondWithNotice writes an error response carrying a user notice
func RespondWithNotice(c *gin.Context, statusCode int, errorCode string, message string, notice interface{}) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
		Notice:  notice,
	})
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func Conflict(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusConflict, errorCode, message)
}

func BadGateway(c *gin.Context, message string) {
	if message == "" {
		message = "Сервис бронирования недоступен. Попробуйте позже"
	}
	RespondWithError(c, http.StatusBadGateway, InternalExternalAPI, message)
}

func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Произошла ошибка сервера. Попробуйте позже"
	}
	RespondWithError(c, http.StatusInternalServerError, InternalServerError, message)
}

// Dropped ends a request whose result was superseded. No body is sent.
func Dropped(c *gin.Context) {
	c.AbortWithStatus(StatusClientClosedRequest)
}

// ValidationError is a validation failure with per-field messages
type ValidationError struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Notice  interface{}       `json:"notice,omitempty"`
}

func RespondWithValidationError(c *gin.Context, fields map[string]string, notice interface{}) {
	c.JSON(http.StatusBadRequest, ValidationError{
		Error:   ValidationInvalidInput,
		Message: "Некорректные данные",
		Fields:  fields,
		Notice:  notice,
	})
}
