package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestQuoteExporter_Export(t *testing.T) {
	fx := setupServiceTest(t)
	ctx := context.Background()

	in := validInput()
	in.Services = []string{model.ServiceChildSeat}
	_, err := fx.cart.Add(ctx, "s1", in)
	require.NoError(t, err)
	_, err = fx.qr.Verify(ctx, "s1", "TEST50")
	require.NoError(t, err)

	data, err := NewQuoteExporter(nil).Export(fx.checkout.Review(ctx, "s1"))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(quoteSheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 5)

	assert.Equal(t, quoteHeaders, rows[0])
	assert.Equal(t, "LiXiang L6", rows[1][0])
	assert.Equal(t, "3", rows[1][3])
	assert.Equal(t, "Детское кресло", rows[1][6])
	assert.Equal(t, "43600", rows[1][9])

	total, _ := f.GetCellValue(quoteSheet, "J4")
	assert.Equal(t, "43600", total)
	payable, _ := f.GetCellValue(quoteSheet, "J6")
	assert.Equal(t, "21800", payable)
}

func TestQuoteExporter_EmptyCart(t *testing.T) {
	data, err := NewQuoteExporter(nil).Export(&CheckoutView{CartView: CartView{Items: []model.CartItem{}}})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
