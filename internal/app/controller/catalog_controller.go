package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bazcar/bazcar-backend/internal/app/service"
	apperrors "github.com/bazcar/bazcar-backend/internal/errors"
	"github.com/bazcar/bazcar-backend/internal/middleware"
)

const monthLayout = "2006-01"

type CatalogController struct {
	catalog service.CatalogService
}

func NewCatalogController(catalog service.CatalogService) *CatalogController {
	return &CatalogController{
		catalog: catalog,
	}
}

// ListCars returns the fleet
// GET /api/v1/cars
func (ctrl *CatalogController) ListCars(c *gin.Context) {
	cars, err := ctrl.catalog.ListCars(c.Request.Context())
	if err != nil {
		respondError(c, err, "car", "list cars")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cars":  cars,
		"count": len(cars),
	})
}

// PopularCars returns the most booked cars
// GET /api/v1/cars/popular?limit=6
func (ctrl *CatalogController) PopularCars(c *gin.Context) {
	limit := service.DefaultPopularLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Некорректный параметр limit")
			return
		}
		limit = parsed
	}

	cars, err := ctrl.catalog.PopularCars(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "car", "list popular cars")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cars":  cars,
		"count": len(cars),
	})
}

// GetCar returns one car by its slug
// GET /api/v1/cars/:slug
func (ctrl *CatalogController) GetCar(c *gin.Context) {
	slug := c.Param("slug")

	car, err := ctrl.catalog.CarBySlug(c.Request.Context(), sessionID(c), slug)
	if err != nil {
		respondError(c, err, "car", "get car")
		return
	}

	middleware.GetLoggerFromContext(c).Debug("Car fetched", map[string]interface{}{
		"car_id": car.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"car": car,
	})
}

// GetCarServices lists the add-ons offered for a car
// GET /api/v1/cars/:slug/services
func (ctrl *CatalogController) GetCarServices(c *gin.Context) {
	services, err := ctrl.catalog.CarServicesBySlug(c.Request.Context(), sessionID(c), c.Param("slug"))
	if err != nil {
		respondError(c, err, "car", "get car services")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"services": services,
	})
}

// GetUnavailableDates lists booked days of a car
// GET /api/v1/cars/:slug/unavailable-dates?month=2024-06&include_next_month=true
func (ctrl *CatalogController) GetUnavailableDates(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		month = time.Now().Format(monthLayout)
	} else if _, err := time.Parse(monthLayout, month); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Месяц должен быть в формате ГГГГ-ММ")
		return
	}
	includeNext, _ := strconv.ParseBool(c.DefaultQuery("include_next_month", "false"))

	dates, err := ctrl.catalog.UnavailableDates(c.Request.Context(), sessionID(c), c.Param("slug"), month, includeNext)
	if err != nil {
		respondError(c, err, "car", "get unavailable dates")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"month":             month,
		"unavailable_dates": dates,
	})
}

// ListServices returns every active add-on
// GET /api/v1/services
func (ctrl *CatalogController) ListServices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"services": ctrl.catalog.ActiveServices(c.Request.Context()),
	})
}

// BookingOptions returns what the booking form offers: delivery options and
// the add-on catalog used for pricing
// GET /api/v1/booking-options
func (ctrl *CatalogController) BookingOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"delivery_options": ctrl.catalog.DeliveryOptions(),
		"services":         ctrl.catalog.ServiceCatalog(c.Request.Context()),
	})
}
