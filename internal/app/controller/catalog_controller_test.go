package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	apperrors "github.com/bazcar/bazcar-backend/internal/errors"
)

func setupCatalogRoutes(fx *controllerFixture) {
	ctrl := NewCatalogController(fx.catalog)
	fx.router.GET("/cars", ctrl.ListCars)
	fx.router.GET("/cars/popular", ctrl.PopularCars)
	fx.router.GET("/cars/:slug", ctrl.GetCar)
	fx.router.GET("/cars/:slug/services", ctrl.GetCarServices)
	fx.router.GET("/cars/:slug/unavailable-dates", ctrl.GetUnavailableDates)
	fx.router.GET("/services", ctrl.ListServices)
	fx.router.GET("/booking-options", ctrl.BookingOptions)
}

func TestCatalogController_ListCars(t *testing.T) {
	fx := setupControllerTest(t)
	setupCatalogRoutes(fx)

	w := fx.do(t, http.MethodGet, "/cars", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Cars  []model.Car `json:"cars"`
		Count int         `json:"count"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "1-lixiang-l6", resp.Cars[0].Slug)
	assert.Equal(t, fx.booking.URL+"/uploads/l6.jpg", resp.Cars[0].Images[0])
}

func TestCatalogController_ListCarsUpstreamFailure(t *testing.T) {
	fx := setupControllerTest(t)
	setupCatalogRoutes(fx)
	fx.booking.listFail = true

	w := fx.do(t, http.MethodGet, "/cars", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCatalogController_PopularCars(t *testing.T) {
	fx := setupControllerTest(t)
	setupCatalogRoutes(fx)

	w := fx.do(t, http.MethodGet, "/cars/popular?limit=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Zeekr 001")

	w = fx.do(t, http.MethodGet, "/cars/popular?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogController_GetCar(t *testing.T) {
	fx := setupControllerTest(t)
	setupCatalogRoutes(fx)

	tests := []struct {
		name   string
		slug   string
		status int
		code   string
	}{
		{"by slug", "1-lixiang-l6", http.StatusOK, ""},
		{"stale name part", "1-old-name", http.StatusOK, ""},
		{"unknown id", "99-ghost", http.StatusNotFound, apperrors.CarNotFound},
		{"no id", "lixiang", http.StatusNotFound, apperrors.CarNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := fx.do(t, http.MethodGet, "/cars/"+tt.slug, nil)
			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				var body apperrors.ErrorResponse
				decode(t, w, &body)
				assert.Equal(t, tt.code, body.Error)
			}
		})
	}
}

func TestCatalogController_CarServicesAndDates(t *testing.T) {
	fx := setupControllerTest(t)
	setupCatalogRoutes(fx)

	w := fx.do(t, http.MethodGet, "/cars/1-lixiang-l6/services", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var services struct {
		Services []model.AdditionalService `json:"services"`
	}
	decode(t, w, &services)
	assert.Len(t, services.Services, 2)

	w = fx.do(t, http.MethodGet, "/cars/1-lixiang-l6/unavailable-dates?month=2024-06&include_next_month=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dates struct {
		Month string   `json:"month"`
		Dates []string `json:"unavailable_dates"`
	}
	decode(t, w, &dates)
	assert.Equal(t, "2024-06", dates.Month)
	assert.Equal(t, []string{"2024-06-10"}, dates.Dates)

	w = fx.do(t, http.MethodGet, "/cars/1-lixiang-l6/unavailable-dates?month=June", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogController_BookingOptions(t *testing.T) {
	fx := setupControllerTest(t)
	setupCatalogRoutes(fx)

	w := fx.do(t, http.MethodGet, "/booking-options", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Delivery []model.DeliveryOption    `json:"delivery_options"`
		Services []model.AdditionalService `json:"services"`
	}
	decode(t, w, &resp)
	assert.Len(t, resp.Delivery, 3)
	assert.Len(t, resp.Services, 5)

	w = fx.do(t, http.MethodGet, "/services", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), model.ServiceChildSeat))
}

func TestCatalogController_AbandonedRequestIsDropped(t *testing.T) {
	fx := setupControllerTest(t)
	setupCatalogRoutes(fx)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/cars/1-lixiang-l6", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	assert.Equal(t, apperrors.StatusClientClosedRequest, w.Code)
	assert.Empty(t, w.Body.String())
}
