package service

import (
	"context"
	"testing"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRService_Verify(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		status     model.QRStatus
		remembered bool
	}{
		{"valid code", " TEST50 ", model.QRStatusSuccess, true},
		{"already used", "USED", model.QRStatusAlreadyUsed, false},
		{"unknown", "NOPE", model.QRStatusError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := setupServiceTest(t)
			ctx := context.Background()

			res, err := fx.qr.Verify(ctx, "s1", tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.status, res.Status)

			discount, ok := fx.qr.Current(ctx, "s1")
			assert.Equal(t, tt.remembered, ok)
			if tt.remembered {
				assert.Equal(t, "TEST50", discount.Code)
				assert.Equal(t, 50, discount.Percent)
			}
		})
	}
}

func TestQRService_VerifyEmpty(t *testing.T) {
	fx := setupServiceTest(t)

	_, err := fx.qr.Verify(context.Background(), "s1", "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestQRService_Forget(t *testing.T) {
	fx := setupServiceTest(t)
	ctx := context.Background()

	_, err := fx.qr.Verify(ctx, "s1", "TEST50")
	require.NoError(t, err)
	require.NoError(t, fx.qr.Forget(ctx, "s1"))

	_, ok := fx.qr.Current(ctx, "s1")
	assert.False(t, ok)
}

func TestQRService_CurrentIgnoresGarbage(t *testing.T) {
	fx := setupServiceTest(t)
	fx.store.data["bazcar_qr_code:s1"] = []byte(`"TEST50"`)

	_, ok := fx.qr.Current(context.Background(), "s1")
	assert.False(t, ok)
}
