package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/bazcar/bazcar-backend/internal/app/pricing"
	"github.com/bazcar/bazcar-backend/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// CartInput is a rental configuration as submitted by the booking form.
type CartInput struct {
	CarID            int64    `json:"car_id" validate:"required,gt=0"`
	PickupDate       string   `json:"pickup_date" validate:"required,datetime=2006-01-02"`
	ReturnDate       string   `json:"return_date" validate:"required,datetime=2006-01-02"`
	DeliveryOptionID string   `json:"delivery_option"`
	Services         []string `json:"services"`
	Name             string   `json:"name" validate:"required"`
	Phone            string   `json:"phone" validate:"required"`
	Email            string   `json:"email" validate:"omitempty,email"`
}

func (in CartInput) trimmed() CartInput {
	in.PickupDate = strings.TrimSpace(in.PickupDate)
	in.ReturnDate = strings.TrimSpace(in.ReturnDate)
	in.DeliveryOptionID = strings.TrimSpace(in.DeliveryOptionID)
	if in.DeliveryOptionID == "" {
		in.DeliveryOptionID = model.DeliveryPickup
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.Services = model.NormalizeServices(in.Services)
	return in
}

// CartItemPatch carries the fields of an item to change; nil means keep.
type CartItemPatch struct {
	PickupDate       *string   `json:"pickup_date"`
	ReturnDate       *string   `json:"return_date"`
	DeliveryOptionID *string   `json:"delivery_option"`
	Services         *[]string `json:"services"`
	Name             *string   `json:"name"`
	Phone            *string   `json:"phone"`
	Email            *string   `json:"email"`
}

type CartView struct {
	Items []model.CartItem `json:"items"`
	Total int64            `json:"total"`
	Count int              `json:"count"`
}

// CartMutation is the cart after a change plus the notice it produced.
type CartMutation struct {
	CartView
	Item      *model.CartItem `json:"item,omitempty"`
	Duplicate bool            `json:"duplicate,omitempty"`
	Notice    Notice          `json:"notice"`
}

type CartService interface {
	Items(ctx context.Context, sessionID string) CartView
	Add(ctx context.Context, sessionID string, in CartInput) (*CartMutation, error)
	Remove(ctx context.Context, sessionID, itemID string) *CartMutation
	Update(ctx context.Context, sessionID, itemID string, patch CartItemPatch) (*CartMutation, error)
	Clear(ctx context.Context, sessionID string) *CartMutation
	Total(ctx context.Context, sessionID string) int64
	OnChange(fn func(sessionID string))
	EvictIdle(idleSince time.Time) int
}

type sessionCart struct {
	mu       sync.Mutex
	items    []model.CartItem
	loaded   bool
	evicted  bool
	lastSeen time.Time
}

type cartService struct {
	cars     CarProvider
	snapshot *CartSnapshot
	notifier Notifier

	mu        sync.Mutex
	carts     map[string]*sessionCart
	listeners []func(sessionID string)
}

func NewCartService(cars CarProvider, snapshot *CartSnapshot, notifier Notifier) CartService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &cartService{
		cars:     cars,
		snapshot: snapshot,
		notifier: notifier,
		carts:    make(map[string]*sessionCart),
	}
}

// lock returns the session's cart with its mutex held, loading the persisted
// snapshot on first use.
func (s *cartService) lock(ctx context.Context, sessionID string) *sessionCart {
	for {
		s.mu.Lock()
		sc, ok := s.carts[sessionID]
		if !ok {
			sc = &sessionCart{}
			s.carts[sessionID] = sc
		}
		s.mu.Unlock()

		sc.mu.Lock()
		if sc.evicted {
			sc.mu.Unlock()
			continue
		}
		if !sc.loaded {
			sc.items = s.snapshot.Load(ctx, sessionID)
			sc.loaded = true
			logger.Debug("Cart rehydrated", logger.Fields{
				"session_id": sessionID,
				"count":      len(sc.items),
			})
		}
		sc.lastSeen = time.Now()
		return sc
	}
}

func (s *cartService) OnChange(fn func(sessionID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// changed persists the cart and tells listeners. Called with sc.mu held.
func (s *cartService) changed(sessionID string, sc *sessionCart) {
	s.snapshot.Save(sessionID, sc.items)

	s.mu.Lock()
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(sessionID)
	}
}

func (s *cartService) notify(sessionID string, n Notice) Notice {
	s.notifier.Notify(sessionID, n)
	return n
}

func view(items []model.CartItem) CartView {
	return CartView{
		Items: model.CloneItems(items),
		Total: pricing.CartTotal(items),
		Count: len(items),
	}
}

func (s *cartService) Items(ctx context.Context, sessionID string) CartView {
	sc := s.lock(ctx, sessionID)
	defer sc.mu.Unlock()
	return view(sc.items)
}

func (s *cartService) Total(ctx context.Context, sessionID string) int64 {
	sc := s.lock(ctx, sessionID)
	defer sc.mu.Unlock()
	return pricing.CartTotal(sc.items)
}

func (s *cartService) Add(ctx context.Context, sessionID string, in CartInput) (*CartMutation, error) {
	in = in.trimmed()
	logger.Info("Adding car to cart", logger.Fields{
		"session_id":      sessionID,
		"car_id":          in.CarID,
		"pickup_date":     in.PickupDate,
		"return_date":     in.ReturnDate,
		"delivery_option": in.DeliveryOptionID,
	})

	if verr := validateInput(in); verr != nil {
		logger.Warn("Cart input rejected", logger.Fields{
			"session_id": sessionID,
			"fields":     verr.Fields,
		})
		s.notify(sessionID, verr.Notice)
		return nil, verr
	}

	car, err := s.cars.Car(ctx, in.CarID)
	if err != nil {
		if errors.Is(err, ErrCarNotFound) {
			s.notify(sessionID, errorNotice("Автомобиль не найден", "Выбранный автомобиль больше недоступен."))
			return nil, err
		}
		logger.Error("Failed to fetch car for cart", err, logger.Fields{
			"session_id": sessionID,
			"car_id":     in.CarID,
		})
		s.notify(sessionID, errorNotice("Ошибка загрузки", "Не удалось получить данные автомобиля. Попробуйте ещё раз."))
		return nil, err
	}

	catalog := s.cars.ServiceCatalog(ctx)
	delivery, verr := checkSelection(*car, in.DeliveryOptionID, in.Services, s.cars.DeliveryOptions(), catalog)
	if verr != nil {
		s.notify(sessionID, verr.Notice)
		return nil, verr
	}

	item := model.CartItem{
		ID:             uuid.NewString(),
		Car:            car.Snapshot(),
		PickupDate:     in.PickupDate,
		ReturnDate:     in.ReturnDate,
		DeliveryOption: delivery,
		Services:       in.Services,
		Name:           in.Name,
		Phone:          in.Phone,
		Email:          in.Email,
		CreatedAt:      time.Now().UTC(),

		SelectedServices: pricing.FreezeServices(*car, in.Services, catalog),
	}
	pricing.Apply(&item, pricing.ForItem(item))

	sc := s.lock(ctx, sessionID)
	defer sc.mu.Unlock()

	key := item.ConfigurationKey()
	for i := range sc.items {
		if sc.items[i].ConfigurationKey() == key {
			logger.Info("Cart already holds configuration", logger.Fields{
				"session_id": sessionID,
				"item_id":    sc.items[i].ID,
			})
			existing := sc.items[i].Clone()
			return &CartMutation{
				CartView:  view(sc.items),
				Item:      &existing,
				Duplicate: true,
				Notice: s.notify(sessionID, infoNotice("Уже в корзине",
					"Эта конфигурация автомобиля уже добавлена. Вы можете изменить её на странице корзины.")),
			}, nil
		}
	}

	sc.items = append(sc.items, item)
	s.changed(sessionID, sc)

	logger.Info("Car added to cart", logger.Fields{
		"session_id":  sessionID,
		"item_id":     item.ID,
		"rental_days": item.RentalDays,
		"total_price": item.TotalPrice,
	})
	added := item.Clone()
	return &CartMutation{
		CartView: view(sc.items),
		Item:     &added,
		Notice:   s.notify(sessionID, infoNotice("Добавлено в корзину!", fmt.Sprintf("%s добавлен в вашу корзину.", car.Name))),
	}, nil
}

// Remove deletes an item. An unknown id leaves the cart as it is.
func (s *cartService) Remove(ctx context.Context, sessionID, itemID string) *CartMutation {
	sc := s.lock(ctx, sessionID)
	defer sc.mu.Unlock()

	kept := sc.items[:0:0]
	for _, item := range sc.items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	if len(kept) != len(sc.items) {
		sc.items = kept
		s.changed(sessionID, sc)
		logger.Info("Cart item removed", logger.Fields{
			"session_id": sessionID,
			"item_id":    itemID,
		})
	} else {
		logger.Debug("Remove of unknown cart item ignored", logger.Fields{
			"session_id": sessionID,
			"item_id":    itemID,
		})
	}

	return &CartMutation{
		CartView: view(sc.items),
		Notice:   s.notify(sessionID, infoNotice("Удалено из корзины", "Товар удалён из вашей корзины.")),
	}
}

// Update merges patch into an item, validates the result and prices it again
// from its stored fields. Add-ons already on the item keep the fee they were
// added at; only newly selected ones are checked against the live catalog.
func (s *cartService) Update(ctx context.Context, sessionID, itemID string, patch CartItemPatch) (*CartMutation, error) {
	var catalog []model.AdditionalService
	if patch.Services != nil {
		catalog = s.cars.ServiceCatalog(ctx)
	}

	sc := s.lock(ctx, sessionID)
	defer sc.mu.Unlock()

	idx := -1
	for i := range sc.items {
		if sc.items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		logger.Warn("Cart item not found for update", logger.Fields{
			"session_id": sessionID,
			"item_id":    itemID,
		})
		return nil, ErrCartItemNotFound
	}

	current := sc.items[idx]
	in := CartInput{
		CarID:            current.Car.ID,
		PickupDate:       current.PickupDate,
		ReturnDate:       current.ReturnDate,
		DeliveryOptionID: current.DeliveryOption.ID,
		Services:         current.Services,
		Name:             current.Name,
		Phone:            current.Phone,
		Email:            current.Email,
	}
	applyPatch(&in, patch)
	in = in.trimmed()

	if verr := validateInput(in); verr != nil {
		s.notify(sessionID, verr.Notice)
		return nil, verr
	}

	added := newServices(current, in.Services)
	if len(added) > 0 && catalog == nil {
		// items persisted before fees were frozen carry ids only
		catalog = s.cars.ServiceCatalog(ctx)
	}
	delivery, verr := checkSelection(current.Car, in.DeliveryOptionID, added, s.cars.DeliveryOptions(), catalog)
	if verr != nil {
		s.notify(sessionID, verr.Notice)
		return nil, verr
	}
	if delivery.ID == current.DeliveryOption.ID {
		delivery = current.DeliveryOption
	}
	selected := mergeServices(current, in.Services, pricing.FreezeServices(current.Car, added, catalog))

	updated := current.Clone()
	updated.PickupDate = in.PickupDate
	updated.ReturnDate = in.ReturnDate
	updated.DeliveryOption = delivery
	updated.Services = in.Services
	updated.SelectedServices = selected
	updated.Name = in.Name
	updated.Phone = in.Phone
	updated.Email = in.Email
	pricing.Apply(&updated, pricing.ForItem(updated))

	key := updated.ConfigurationKey()
	for i := range sc.items {
		if i != idx && sc.items[i].ConfigurationKey() == key {
			s.notify(sessionID, infoNotice("Уже в корзине", "Такая конфигурация автомобиля уже есть в корзине."))
			return nil, ErrDuplicateCartItem
		}
	}

	sc.items[idx] = updated
	s.changed(sessionID, sc)

	logger.Info("Cart item updated", logger.Fields{
		"session_id":  sessionID,
		"item_id":     itemID,
		"total_price": updated.TotalPrice,
	})
	out := updated.Clone()
	return &CartMutation{
		CartView: view(sc.items),
		Item:     &out,
		Notice:   s.notify(sessionID, infoNotice("Корзина обновлена", "Информация о товаре в корзине обновлена.")),
	}, nil
}

func (s *cartService) Clear(ctx context.Context, sessionID string) *CartMutation {
	sc := s.lock(ctx, sessionID)
	defer sc.mu.Unlock()

	removed := len(sc.items)
	sc.items = []model.CartItem{}
	s.changed(sessionID, sc)

	logger.Info("Cart cleared", logger.Fields{
		"session_id": sessionID,
		"removed":    removed,
	})
	return &CartMutation{
		CartView: view(sc.items),
		Notice:   s.notify(sessionID, infoNotice("Корзина очищена", "Все товары удалены из вашей корзины.")),
	}
}

// EvictIdle drops in-memory carts not touched since idleSince. Their
// snapshots stay in the session store and are reloaded on next use.
func (s *cartService) EvictIdle(idleSince time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sc := range s.carts {
		if !sc.mu.TryLock() {
			continue
		}
		if sc.lastSeen.Before(idleSince) {
			sc.evicted = true
			delete(s.carts, id)
			evicted++
		}
		sc.mu.Unlock()
	}
	return evicted
}

func applyPatch(in *CartInput, p CartItemPatch) {
	if p.PickupDate != nil {
		in.PickupDate = *p.PickupDate
	}
	if p.ReturnDate != nil {
		in.ReturnDate = *p.ReturnDate
	}
	if p.DeliveryOptionID != nil {
		in.DeliveryOptionID = *p.DeliveryOptionID
	}
	if p.Services != nil {
		in.Services = *p.Services
	}
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Phone != nil {
		in.Phone = *p.Phone
	}
	if p.Email != nil {
		in.Email = *p.Email
	}
}

// newServices lists the ids in services that item has no frozen fee for.
func newServices(item model.CartItem, services []string) []string {
	var out []string
	for _, id := range services {
		if _, ok := item.SelectedService(id); !ok {
			out = append(out, id)
		}
	}
	return out
}

// mergeServices builds the frozen lines for services: the item's own where it
// has one, otherwise the freshly frozen line.
func mergeServices(item model.CartItem, services []string, fresh []model.SelectedService) []model.SelectedService {
	out := make([]model.SelectedService, 0, len(services))
	for _, id := range services {
		if line, ok := item.SelectedService(id); ok {
			out = append(out, line)
			continue
		}
		for _, line := range fresh {
			if line.ServiceID == id {
				out = append(out, line)
				break
			}
		}
	}
	return out
}

// validateInput checks the form fields that need no catalog data.
func validateInput(in CartInput) *ValidationError {
	missing := false
	badDates := false
	fields := make(map[string]string)

	if err := validate.Struct(in); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			verr := newValidationError("Ошибка валидации", "Проверьте введённые данные.")
			verr.add("input", err.Error())
			return verr
		}
		for _, fe := range ves {
			switch fe.Tag() {
			case "required":
				missing = true
				fields[fe.Field()] = "is required"
			case "datetime":
				badDates = true
				fields[fe.Field()] = "must be a YYYY-MM-DD date"
			case "email":
				fields[fe.Field()] = "must be a valid email"
			default:
				fields[fe.Field()] = "is invalid"
			}
		}
	}

	if _, dateErr := fields["pickup_date"]; !dateErr {
		if _, retErr := fields["return_date"]; !retErr {
			if pricing.RentalDays(in.PickupDate, in.ReturnDate) == 0 {
				badDates = true
				fields["return_date"] = "must be after pickup_date"
			}
		}
	}

	if len(fields) == 0 {
		return nil
	}

	var verr *ValidationError
	switch {
	case missing:
		verr = newValidationError("Неполные данные", "Пожалуйста, укажите имя, телефон и даты аренды.")
	case badDates:
		verr = newValidationError("Ошибка в датах", "Дата возврата должна быть позже даты получения.")
	default:
		verr = newValidationError("Ошибка валидации", "Проверьте введённые данные.")
	}
	for field, reason := range fields {
		verr.add(field, reason)
	}
	return verr
}

// checkSelection resolves the delivery option and checks every selected
// service exists and is offered for the car.
func checkSelection(car model.Car, deliveryID string, services []string, options []model.DeliveryOption, catalog []model.AdditionalService) (model.DeliveryOption, *ValidationError) {
	verr := newValidationError("Ошибка валидации", "Выбранная опция недоступна для этого автомобиля.")

	delivery, ok := model.FindDeliveryOption(options, deliveryID)
	if !ok {
		verr.add("delivery_option", "unknown delivery option")
	}

	for _, id := range services {
		known := false
		for _, svc := range catalog {
			if svc.ServiceID != id {
				continue
			}
			known = true
			if !svc.AvailableFor(car) {
				verr.add("services", fmt.Sprintf("%s is not available for this car", id))
			}
			break
		}
		if !known {
			verr.add("services", fmt.Sprintf("unknown service %s", id))
		}
	}

	if !verr.empty() {
		return model.DeliveryOption{}, verr
	}
	return delivery, nil
}
