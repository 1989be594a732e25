package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/bazcar/bazcar-backend/internal/app/pricing"
	"github.com/bazcar/bazcar-backend/pkg/bookingapi"
	"github.com/bazcar/bazcar-backend/pkg/events"
	"github.com/bazcar/bazcar-backend/pkg/logger"
)

var (
	ErrCartEmpty            = errors.New("cart is empty")
	ErrCheckoutNotConfirmed = errors.New("checkout has not been confirmed")
	ErrCheckoutInProgress   = errors.New("checkout submission already in progress")
	ErrCheckoutSubmitted    = errors.New("cart has already been submitted")
)

const eventPublishTimeout = 5 * time.Second

// CheckoutView is the checkout page state of a session.
type CheckoutView struct {
	CartView
	State             model.CheckoutState  `json:"state"`
	Contact           *model.Contact       `json:"contact,omitempty"`
	Discount          *model.Discount      `json:"discount,omitempty"`
	DiscountAmount    int64                `json:"discount_amount"`
	TotalWithDiscount int64                `json:"total_with_discount"`
	Result            *model.BookingResult `json:"result,omitempty"`
}

// SubmitOutcome is a successful submission and the notice shown for it.
type SubmitOutcome struct {
	Result *model.BookingResult `json:"result"`
	Notice Notice               `json:"notice"`
}

type CheckoutService interface {
	Review(ctx context.Context, sessionID string) *CheckoutView
	Confirm(ctx context.Context, sessionID string, contact *model.Contact) (*CheckoutView, error)
	Submit(ctx context.Context, sessionID string) (*SubmitOutcome, error)
	State(sessionID string) model.CheckoutState
	EvictIdle(idleSince time.Time) int
}

type checkoutSession struct {
	state      model.CheckoutState
	contact    *model.Contact
	generation uint64
	submitting bool
	result     *model.BookingResult
	lastSeen   time.Time
}

type checkoutService struct {
	cart      CartService
	qr        QRService
	api       BookingAPI
	publisher events.Publisher
	notifier  Notifier

	mu       sync.Mutex
	sessions map[string]*checkoutSession
}

// NewCheckoutService wires the checkout state machine to the cart; any cart
// change sends the session back to reviewing.
func NewCheckoutService(cart CartService, qr QRService, api BookingAPI, publisher events.Publisher, notifier Notifier) CheckoutService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	s := &checkoutService{
		cart:      cart,
		qr:        qr,
		api:       api,
		publisher: publisher,
		notifier:  notifier,
		sessions:  make(map[string]*checkoutSession),
	}
	cart.OnChange(s.reset)
	return s
}

// session returns the state of sessionID. Called with s.mu held.
func (s *checkoutService) session(sessionID string) *checkoutSession {
	cs, ok := s.sessions[sessionID]
	if !ok {
		cs = &checkoutSession{state: model.CheckoutReviewing}
		s.sessions[sessionID] = cs
	}
	cs.lastSeen = time.Now()
	return cs
}

// EvictIdle forgets checkout state not touched since idleSince. Sessions
// with a submission in flight are kept.
func (s *checkoutService) EvictIdle(idleSince time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, cs := range s.sessions {
		if !cs.submitting && cs.lastSeen.Before(idleSince) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

func (s *checkoutService) reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	cs.generation++
	if cs.state != model.CheckoutReviewing {
		logger.Debug("Checkout reset by cart change", logger.Fields{
			"session_id": sessionID,
			"from":       cs.state,
		})
	}
	cs.state = model.CheckoutReviewing
	cs.result = nil
}

func (s *checkoutService) State(sessionID string) model.CheckoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cs, ok := s.sessions[sessionID]; ok {
		return cs.state
	}
	return model.CheckoutReviewing
}

func (s *checkoutService) Review(ctx context.Context, sessionID string) *CheckoutView {
	cart := s.cart.Items(ctx, sessionID)

	s.mu.Lock()
	cs := s.session(sessionID)
	v := &CheckoutView{
		CartView: cart,
		State:    cs.state,
		Contact:  cs.contact,
		Result:   cs.result,
	}
	s.mu.Unlock()

	if v.Contact == nil && len(cart.Items) > 0 && cart.Items[0].HasContact() {
		v.Contact = contactOf(cart.Items[0])
	}
	v.TotalWithDiscount = cart.Total
	if discount, ok := s.qr.Current(ctx, sessionID); ok {
		v.Discount = discount
		v.TotalWithDiscount, v.DiscountAmount = pricing.ApplyDiscount(cart.Total, discount.Percent)
	}
	return v
}

// Confirm moves a reviewed cart to confirming. Every item needs a name and
// phone. contact, when given, replaces the first item's contact on submission.
func (s *checkoutService) Confirm(ctx context.Context, sessionID string, contact *model.Contact) (*CheckoutView, error) {
	cart := s.cart.Items(ctx, sessionID)
	if len(cart.Items) == 0 {
		s.notifier.Notify(sessionID, errorNotice("Корзина пуста", "Добавьте автомобили в корзину перед оформлением заказа"))
		return nil, ErrCartEmpty
	}

	verr := newValidationError("Неполные данные",
		"У некоторых позиций отсутствует контактная информация. Пожалуйста, проверьте данные.")
	for _, item := range cart.Items {
		if !item.HasContact() {
			verr.add("items."+item.ID, "name and phone are required")
		}
	}
	if contact != nil {
		contact = &model.Contact{
			Name:  strings.TrimSpace(contact.Name),
			Phone: strings.TrimSpace(contact.Phone),
			Email: strings.TrimSpace(contact.Email),
		}
		if contact.Name == "" {
			verr.add("name", "is required")
		}
		if contact.Phone == "" {
			verr.add("phone", "is required")
		}
	}
	if !verr.empty() {
		s.notifier.Notify(sessionID, verr.Notice)
		return nil, verr
	}

	s.mu.Lock()
	cs := s.session(sessionID)
	switch {
	case cs.submitting:
		s.mu.Unlock()
		return nil, ErrCheckoutInProgress
	case cs.state == model.CheckoutSubmitted:
		s.mu.Unlock()
		return nil, ErrCheckoutSubmitted
	}
	cs.state = model.CheckoutConfirming
	cs.contact = contact
	s.mu.Unlock()

	logger.Info("Checkout confirmed", logger.Fields{
		"session_id": sessionID,
		"items":      len(cart.Items),
	})
	return s.Review(ctx, sessionID), nil
}

// Submit sends a confirmed cart to the booking API. The cart is left as it
// is; clearing it is up to the caller.
func (s *checkoutService) Submit(ctx context.Context, sessionID string) (*SubmitOutcome, error) {
	s.mu.Lock()
	cs := s.session(sessionID)
	switch {
	case cs.submitting:
		s.mu.Unlock()
		return nil, ErrCheckoutInProgress
	case cs.state == model.CheckoutSubmitted:
		s.mu.Unlock()
		return nil, ErrCheckoutSubmitted
	case cs.state != model.CheckoutConfirming:
		s.mu.Unlock()
		return nil, ErrCheckoutNotConfirmed
	}
	cs.submitting = true
	generation := cs.generation
	override := cs.contact
	s.mu.Unlock()

	result, req, err := s.submit(ctx, sessionID, override)

	s.mu.Lock()
	cs.submitting = false
	if err == nil && cs.generation == generation {
		cs.state = model.CheckoutSubmitted
		cs.result = result
	}
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, ErrCartEmpty) {
			s.reset(sessionID)
			s.notifier.Notify(sessionID, errorNotice("Корзина пуста", "Добавьте автомобили в корзину перед оформлением заказа"))
			return nil, err
		}
		logger.Error("Checkout submission failed", err, logger.Fields{"session_id": sessionID})
		s.notifier.Notify(sessionID, errorNotice("Ошибка", submitFailureMessage(err)))
		return nil, err
	}

	s.afterSubmit(ctx, sessionID, req, result)

	notice := infoNotice("Заказ готов!", "Вы будете перенаправлены в WhatsApp для отправки деталей заказа.")
	s.notifier.Notify(sessionID, notice)
	return &SubmitOutcome{Result: result, Notice: notice}, nil
}

func (s *checkoutService) submit(ctx context.Context, sessionID string, override *model.Contact) (*model.BookingResult, bookingapi.CartBookingRequest, error) {
	var req bookingapi.CartBookingRequest

	cart := s.cart.Items(ctx, sessionID)
	if len(cart.Items) == 0 {
		return nil, req, ErrCartEmpty
	}

	contact := override
	if contact == nil {
		contact = contactOf(cart.Items[0])
	}
	req = bookingapi.CartBookingRequest{
		Items:         make([]bookingapi.CartBookingItem, 0, len(cart.Items)),
		CustomerName:  contact.Name,
		CustomerPhone: contact.Phone,
		CustomerEmail: contact.Email,
	}
	for _, item := range cart.Items {
		req.Items = append(req.Items, bookingapi.CartBookingItem{
			CarID:                item.Car.ID,
			PickupDate:           item.PickupDate,
			ReturnDate:           item.ReturnDate,
			DeliveryOptionID:     item.DeliveryOption.ID,
			AdditionalServiceIDs: append([]string(nil), item.Services...),
		})
	}
	if discount, ok := s.qr.Current(ctx, sessionID); ok {
		percent := discount.Percent
		req.QRCode = discount.Code
		req.DiscountPercent = &percent
	}

	logger.Info("Submitting cart booking", logger.Fields{
		"session_id": sessionID,
		"items":      len(req.Items),
		"has_qr":     req.QRCode != "",
	})
	result, err := s.api.SubmitCart(ctx, req)
	if err != nil {
		return nil, req, err
	}
	return result, req, nil
}

// afterSubmit publishes the booking event and consumes the QR code. Failures
// here never undo a booking the API already accepted.
func (s *checkoutService) afterSubmit(ctx context.Context, sessionID string, req bookingapi.CartBookingRequest, result *model.BookingResult) {
	carIDs := make([]int64, 0, len(req.Items))
	for _, item := range req.Items {
		carIDs = append(carIDs, item.CarID)
	}
	event := events.BookingSubmitted{
		SessionID:  sessionID,
		CarIDs:     carIDs,
		ItemsCount: result.ItemsCount,
		TotalPrice: result.TotalPrice,
		QRCode:     req.QRCode,
	}
	if req.DiscountPercent != nil {
		event.DiscountPercent = *req.DiscountPercent
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()
	if err := s.publisher.PublishBookingSubmitted(pubCtx, event); err != nil {
		logger.Warn("Booking event not published", logger.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}

	if req.QRCode != "" {
		if err := s.qr.Forget(context.WithoutCancel(ctx), sessionID); err != nil {
			logger.Warn("Used QR code not cleared", logger.Fields{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}

	logger.Info("Cart booking submitted", logger.Fields{
		"session_id":  sessionID,
		"items":       result.ItemsCount,
		"total_price": result.TotalPrice,
	})
}

func contactOf(item model.CartItem) *model.Contact {
	return &model.Contact{Name: item.Name, Phone: item.Phone, Email: item.Email}
}

func submitFailureMessage(err error) string {
	var apiErr *bookingapi.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if errors.Is(err, bookingapi.ErrNetworkError) {
		return "Не удалось связаться с сервером. Проверьте подключение к интернету."
	}
	return "Не удалось создать заказ"
}
