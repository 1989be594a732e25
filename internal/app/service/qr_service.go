package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/bazcar/bazcar-backend/pkg/logger"
)

// PrizeDiscount is the discount of a code that wins a free rental.
const PrizeDiscount = 100

type QRService interface {
	Verify(ctx context.Context, sessionID, code string) (*model.QRVerification, error)
	Current(ctx context.Context, sessionID string) (*model.Discount, bool)
	Forget(ctx context.Context, sessionID string) error
}

type qrService struct {
	api   BookingAPI
	store SessionStore
}

func NewQRService(api BookingAPI, store SessionStore) QRService {
	return &qrService{api: api, store: store}
}

// Verify checks a code with the booking API and remembers it for the session
// when it is valid and unused.
func (s *qrService) Verify(ctx context.Context, sessionID, code string) (*model.QRVerification, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		verr := newValidationError("Ошибка проверки", "Введите QR код.")
		verr.add("code", "is required")
		return nil, verr
	}

	result, err := s.api.VerifyQRCode(ctx, code)
	if err != nil {
		logger.Error("Failed to verify QR code", err, logger.Fields{"session_id": sessionID})
		return nil, err
	}

	if result.Status != model.QRStatusSuccess || result.Data == nil || result.Data.Active {
		logger.Info("QR code not accepted", logger.Fields{
			"session_id": sessionID,
			"status":     result.Status,
		})
		return result, nil
	}

	discount := model.Discount{Code: result.Data.Code, Percent: result.Data.Discount}
	if discount.Code == "" {
		discount.Code = code
	}
	data, err := json.Marshal(discount)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, qrCodeKey(sessionID), data); err != nil {
		logger.Warn("Verified QR code not remembered", logger.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}

	logger.Info("QR code verified", logger.Fields{
		"session_id": sessionID,
		"discount":   discount.Percent,
	})
	return result, nil
}

// Current returns the session's verified discount. Unreadable entries count
// as no discount.
func (s *qrService) Current(ctx context.Context, sessionID string) (*model.Discount, bool) {
	data, found, err := s.store.Get(ctx, qrCodeKey(sessionID))
	if err != nil || !found {
		return nil, false
	}
	var discount model.Discount
	if err := json.Unmarshal(data, &discount); err != nil || discount.Code == "" || discount.Percent <= 0 {
		return nil, false
	}
	return &discount, true
}

func (s *qrService) Forget(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, qrCodeKey(sessionID))
}
