package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/bazcar/bazcar-backend/pkg/bookingapi"
	"github.com/bazcar/bazcar-backend/pkg/logger"
	"github.com/bazcar/bazcar-backend/pkg/util"
)

const (
	DefaultPopularLimit = 6
	maxPopularLimit     = 50
)

// BookingAPI is the subset of the booking API client the services rely on.
type BookingAPI interface {
	ListCars(ctx context.Context) ([]model.Car, error)
	PopularCars(ctx context.Context, limit int) ([]model.Car, error)
	GetCar(ctx context.Context, id int64) (*model.Car, error)
	CarServices(ctx context.Context, carID int64) ([]model.AdditionalService, error)
	ActiveServices(ctx context.Context) ([]model.AdditionalService, error)
	UnavailableDates(ctx context.Context, carID int64, month string, includeNextMonth bool) ([]string, error)
	VerifyQRCode(ctx context.Context, code string) (*model.QRVerification, error)
	SubmitCart(ctx context.Context, req bookingapi.CartBookingRequest) (*model.BookingResult, error)
}

type CatalogService interface {
	ListCars(ctx context.Context) ([]model.Car, error)
	PopularCars(ctx context.Context, limit int) ([]model.Car, error)
	CarBySlug(ctx context.Context, sessionID, slug string) (*model.Car, error)
	CarServicesBySlug(ctx context.Context, sessionID, slug string) ([]model.AdditionalService, error)
	UnavailableDates(ctx context.Context, sessionID, slug, month string, includeNextMonth bool) ([]string, error)
	ActiveServices(ctx context.Context) []model.AdditionalService
	CarProvider
}

// CarProvider supplies what the cart needs to price an item.
type CarProvider interface {
	Car(ctx context.Context, id int64) (*model.Car, error)
	ServiceCatalog(ctx context.Context) []model.AdditionalService
	DeliveryOptions() []model.DeliveryOption
}

type catalogService struct {
	api           BookingAPI
	guard         *FetchGuard
	serverBaseURL string
	delivery      []model.DeliveryOption
}

func NewCatalogService(api BookingAPI, guard *FetchGuard, serverBaseURL string) CatalogService {
	if guard == nil {
		guard = NewFetchGuard()
	}
	return &catalogService{
		api:           api,
		guard:         guard,
		serverBaseURL: serverBaseURL,
		delivery:      model.DefaultDeliveryOptions(),
	}
}

func (s *catalogService) normalize(car model.Car) model.Car {
	out := car.Normalize(s.serverBaseURL)
	out.Slug = util.GenerateCarSlug(out)
	return out
}

func (s *catalogService) normalizeAll(cars []model.Car) []model.Car {
	out := make([]model.Car, 0, len(cars))
	for _, car := range cars {
		out = append(out, s.normalize(car))
	}
	return out
}

func (s *catalogService) ListCars(ctx context.Context) ([]model.Car, error) {
	cars, err := s.api.ListCars(ctx)
	if err != nil {
		logger.Error("Failed to list cars", err)
		return nil, err
	}

	logger.Debug("Cars listed", logger.Fields{"count": len(cars)})
	return s.normalizeAll(cars), nil
}

func (s *catalogService) PopularCars(ctx context.Context, limit int) ([]model.Car, error) {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	if limit > maxPopularLimit {
		limit = maxPopularLimit
	}

	cars, err := s.api.PopularCars(ctx, limit)
	if err != nil {
		logger.Error("Failed to list popular cars", err, logger.Fields{"limit": limit})
		return nil, err
	}
	return s.normalizeAll(cars), nil
}

// Car fetches a car straight from the booking API so prices are current.
func (s *catalogService) Car(ctx context.Context, id int64) (*model.Car, error) {
	car, err := s.api.GetCar(ctx, id)
	if err != nil {
		if errors.Is(err, bookingapi.ErrNotFound) {
			logger.Warn("Car not found", logger.Fields{"car_id": id})
			return nil, ErrCarNotFound
		}
		return nil, err
	}
	out := s.normalize(*car)
	return &out, nil
}

func (s *catalogService) CarBySlug(ctx context.Context, sessionID, slug string) (*model.Car, error) {
	id, ok := util.ParseCarIDFromSlug(slug)
	if !ok {
		logger.Warn("Car slug has no id", logger.Fields{"slug": slug})
		return nil, ErrCarNotFound
	}

	return guardedFetch(ctx, s.guard, guardKey(sessionID, "car"), func(ctx context.Context) (*model.Car, error) {
		return s.Car(ctx, id)
	})
}

// CarServicesBySlug lists the services offered for a car. Fetch failures
// yield an empty list.
func (s *catalogService) CarServicesBySlug(ctx context.Context, sessionID, slug string) ([]model.AdditionalService, error) {
	id, ok := util.ParseCarIDFromSlug(slug)
	if !ok {
		return nil, ErrCarNotFound
	}

	services, err := guardedFetch(ctx, s.guard, guardKey(sessionID, "services"), func(ctx context.Context) ([]model.AdditionalService, error) {
		return s.api.CarServices(ctx, id)
	})
	if err != nil {
		if errors.Is(err, ErrSuperseded) || ctx.Err() != nil {
			return nil, err
		}
		logger.Warn("Car services unavailable, returning none", logger.Fields{
			"car_id": id,
			"error":  err.Error(),
		})
		return []model.AdditionalService{}, nil
	}
	return services, nil
}

// UnavailableDates lists booked dates of a car. Fetch failures yield an
// empty list so the calendar stays usable.
func (s *catalogService) UnavailableDates(ctx context.Context, sessionID, slug, month string, includeNextMonth bool) ([]string, error) {
	id, ok := util.ParseCarIDFromSlug(slug)
	if !ok {
		return nil, ErrCarNotFound
	}

	dates, err := guardedFetch(ctx, s.guard, guardKey(sessionID, "availability"), func(ctx context.Context) ([]string, error) {
		return s.api.UnavailableDates(ctx, id, month, includeNextMonth)
	})
	if err != nil {
		if errors.Is(err, ErrSuperseded) || ctx.Err() != nil {
			return nil, err
		}
		logger.Warn("Availability unavailable, returning none", logger.Fields{
			"car_id": id,
			"month":  month,
			"error":  err.Error(),
		})
		return []string{}, nil
	}
	return dates, nil
}

// ActiveServices lists every active add-on. Fetch failures yield an empty list.
func (s *catalogService) ActiveServices(ctx context.Context) []model.AdditionalService {
	services, err := s.api.ActiveServices(ctx)
	if err != nil {
		logger.Warn("Active services unavailable, returning none", logger.Fields{"error": err.Error()})
		return []model.AdditionalService{}
	}
	return services
}

// ServiceCatalog is the add-on catalog used for pricing. When the booking
// API has none to offer, the built-in defaults apply.
func (s *catalogService) ServiceCatalog(ctx context.Context) []model.AdditionalService {
	services, err := s.api.ActiveServices(ctx)
	if err != nil || len(services) == 0 {
		if err != nil {
			logger.Warn("Falling back to default service catalog", logger.Fields{"error": err.Error()})
		}
		return model.DefaultAdditionalServices()
	}
	return services
}

func (s *catalogService) DeliveryOptions() []model.DeliveryOption {
	out := make([]model.DeliveryOption, len(s.delivery))
	copy(out, s.delivery)
	return out
}

func guardKey(sessionID, kind string) string {
	return fmt.Sprintf("%s:%s", sessionID, kind)
}
