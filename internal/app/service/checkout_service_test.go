package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/bazcar/bazcar-backend/pkg/bookingapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutService_HappyPath(t *testing.T) {
	fx := setupServiceTest(t)
	ctx := context.Background()

	_, err := fx.cart.Add(ctx, "s1", validInput())
	require.NoError(t, err)

	view := fx.checkout.Review(ctx, "s1")
	assert.Equal(t, model.CheckoutReviewing, view.State)
	assert.Equal(t, int64(42900), view.Total)
	require.NotNil(t, view.Contact)
	assert.Equal(t, "Иван", view.Contact.Name)

	view, err = fx.checkout.Confirm(ctx, "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, model.CheckoutConfirming, view.State)

	out, err := fx.checkout.Submit(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "https://wa.me/79000000000?text=order", out.Result.WhatsAppLink)
	assert.Equal(t, "Заказ готов!", out.Notice.Title)
	assert.Equal(t, model.CheckoutSubmitted, fx.checkout.State("s1"))

	require.Len(t, fx.api.submitted, 1)
	req := fx.api.submitted[0]
	assert.Equal(t, "Иван", req.CustomerName)
	assert.Equal(t, "+79000000000", req.CustomerPhone)
	require.Len(t, req.Items, 1)
	assert.Equal(t, bookingapi.CartBookingItem{
		CarID:            1,
		PickupDate:       "2024-06-01",
		ReturnDate:       "2024-06-04",
		DeliveryOptionID: model.DeliveryPickup,
	}, req.Items[0])
	assert.Empty(t, req.QRCode)
	assert.Nil(t, req.DiscountPercent)

	require.Len(t, fx.publisher.events, 1)
	assert.Equal(t, "s1", fx.publisher.events[0].SessionID)
	assert.Equal(t, []int64{1}, fx.publisher.events[0].CarIDs)

	// the cart is left for the caller to clear
	assert.Len(t, fx.cart.Items(ctx, "s1").Items, 1)

	_, err = fx.checkout.Submit(ctx, "s1")
	assert.ErrorIs(t, err, ErrCheckoutSubmitted)
}

func TestCheckoutService_SubmitRequiresConfirm(t *testing.T) {
	fx := setupServiceTest(t)
	ctx := context.Background()

	_, err := fx.cart.Add(ctx, "s1", validInput())
	require.NoError(t, err)

	_, err = fx.checkout.Submit(ctx, "s1")
	assert.ErrorIs(t, err, ErrCheckoutNotConfirmed)
	assert.Empty(t, fx.api.submitted)
}

func TestCheckoutService_ConfirmEmptyCart(t *testing.T) {
	fx := setupServiceTest(t)

	_, err := fx.checkout.Confirm(context.Background(), "s1", nil)
	assert.ErrorIs(t, err, ErrCartEmpty)
	assert.Equal(t, "Корзина пуста", fx.notifier.last().Title)
}

func TestCheckoutService_ConfirmContactOverride(t *testing.T) {
	fx := setupServiceTest(t)
	ctx := context.Background()

	_, err := fx.cart.Add(ctx, "s1", validInput())
	require.NoError(t, err)

	_, err = fx.checkout.Confirm(ctx, "s1", &model.Contact{Name: "Анна"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "phone")
	assert.Equal(t, model.CheckoutReviewing, fx.checkout.State("s1"))

	_, err = fx.checkout.Confirm(ctx, "s1", &model.Contact{Name: " Анна ", Phone: "+79111111111", Email: "anna@example.com"})
	require.NoError(t, err)
	_, err = fx.checkout.Submit(ctx, "s1")
	require.NoError(t, err)

	req := fx.api.submitted[0]
	assert.Equal(t, "Анна", req.CustomerName)
	assert.Equal(t, "+79111111111", req.CustomerPhone)
	assert.Equal(t, "anna@example.com", req.CustomerEmail)
}

func TestCheckoutService_CartChangeResetsState(t *testing.T) {
	fx := setupServiceTest(t)
	ctx := context.Background()

	_, err := fx.cart.Add(ctx, "s1", validInput())
	require.NoError(t, err)
	_, err = fx.checkout.Confirm(ctx, "s1", nil)
	require.NoError(t, err)

	in := validInput()
	in.ReturnDate = "2024-06-08"
	_, err = fx.cart.Add(ctx, "s1", in)
	require.NoError(t, err)

	assert.Equal(t, model.CheckoutReviewing, fx.checkout.State("s1"))
	_, err = fx.checkout.Submit(ctx, "s1")
	assert.ErrorIs(t, err, ErrCheckoutNotConfirmed)
}

func TestCheckoutService_SubmittedResetsAfterClear(t *testing.T) {
	fx := setupServiceTest(t)
	ctx := context.Background()

	_, err := fx.cart.Add(ctx, "s1", validInput())
	require.NoError(t, err)
	_, err = fx.checkout.Confirm(ctx, "s1", nil)
	require.NoError(t, err)
	_, err = fx.checkout.Submit(ctx, "s1")
	require.NoError(t, err)

	fx.cart.Clear(ctx, "s1")
	assert.Equal(t, model.CheckoutReviewing, fx.checkout.State("s1"))
	assert.Nil(t, fx.checkout.Review(ctx, "s1").Result)
}

func TestCheckoutService_SubmitFailureStaysConfirming(t *testing.T) {
	fx := setupServiceTest(t)
	ctx := context.Background()
	fx.api.submitErr = &bookingapi.APIError{StatusCode: 422, Detail: "Автомобиль занят на выбранные даты"}

	_, err := fx.cart.Add(ctx, "s1", validInput())
	require.NoError(t, err)
	_, err = fx.checkout.Confirm(ctx, "s1", nil)
	require.NoError(t, err)

	_, err = fx.checkout.Submit(ctx, "s1")
	assert.ErrorIs(t, err, bookingapi.ErrRequestFailed)
	assert.Equal(t, model.CheckoutConfirming, fx.checkout.State("s1"))

	last := fx.notifier.last()
	assert.Equal(t, "Ошибка", last.Title)
	assert.Equal(t, "Автомобиль занят на выбранные даты", last.Description)
	assert.Equal(t, NoticeDestructive, last.Variant)
	assert.Empty(t, fx.publisher.events)

	// retry succeeds from the same state
	fx.api.submitErr = nil
	_, err = fx.checkout.Submit(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.CheckoutSubmitted, fx.checkout.State("s1"))
}

func TestCheckoutService_DiscountApplied(t *testing.T) {
	fx := setupServiceTest(t)
	ctx := context.Background()

	_, err := fx.cart.Add(ctx, "s1", validInput())
	require.NoError(t, err)
	_, err = fx.qr.Verify(ctx, "s1", "TEST50")
	require.NoError(t, err)

	view := fx.checkout.Review(ctx, "s1")
	require.NotNil(t, view.Discount)
	assert.Equal(t, int64(21450), view.DiscountAmount)
	assert.Equal(t, int64(21450), view.TotalWithDiscount)

	_, err = fx.checkout.Confirm(ctx, "s1", nil)
	require.NoError(t, err)
	_, err = fx.checkout.Submit(ctx, "s1")
	require.NoError(t, err)

	req := fx.api.submitted[0]
	assert.Equal(t, "TEST50", req.QRCode)
	require.NotNil(t, req.DiscountPercent)
	assert.Equal(t, 50, *req.DiscountPercent)
	assert.Equal(t, 50, fx.publisher.events[0].DiscountPercent)

	_, ok := fx.qr.Current(ctx, "s1")
	assert.False(t, ok, "code is consumed by a successful booking")
}

func TestCheckoutService_PublishFailureKeepsBooking(t *testing.T) {
	fx := setupServiceTest(t)
	ctx := context.Background()
	fx.publisher.err = errors.New("broker down")

	_, err := fx.cart.Add(ctx, "s1", validInput())
	require.NoError(t, err)
	_, err = fx.checkout.Confirm(ctx, "s1", nil)
	require.NoError(t, err)

	out, err := fx.checkout.Submit(ctx, "s1")
	require.NoError(t, err)
	assert.NotNil(t, out.Result)
	assert.Equal(t, model.CheckoutSubmitted, fx.checkout.State("s1"))
}

func TestCheckoutService_EvictIdle(t *testing.T) {
	fx := setupServiceTest(t)
	ctx := context.Background()

	_, err := fx.cart.Add(ctx, "s1", validInput())
	require.NoError(t, err)
	_, err = fx.checkout.Confirm(ctx, "s1", nil)
	require.NoError(t, err)

	assert.Equal(t, 0, fx.checkout.EvictIdle(time.Now().Add(-time.Hour)))
	assert.Equal(t, 1, fx.checkout.EvictIdle(time.Now().Add(time.Second)))
	assert.Equal(t, model.CheckoutReviewing, fx.checkout.State("s1"))
}
