package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/bazcar/bazcar-backend/pkg/bookingapi"
	"github.com/bazcar/bazcar-backend/pkg/events"
)

type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	sets   int
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) raw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

type fakeBookingAPI struct {
	mu sync.Mutex

	cars           map[int64]model.Car
	popular        []model.Car
	listErr        error
	getErr         error
	carServices    []model.AdditionalService
	carServicesErr error
	active         []model.AdditionalService
	activeErr      error
	unavailable    []string
	unavailableErr error
	qr             map[string]*model.QRVerification
	submitResult   *model.BookingResult
	submitErr      error
	submitted      []bookingapi.CartBookingRequest

	// getStarted receives once per GetCar call; GetCar then waits for
	// release or ctx cancellation when release is non-nil.
	getStarted chan int64
	release    chan struct{}
}

func int64Ptr(v int64) *int64 { return &v }

func newFakeBookingAPI() *fakeBookingAPI {
	return &fakeBookingAPI{
		cars: map[int64]model.Car{
			1: {ID: 1, Name: "LiXiang L6", Price: 15900, Price3PlusDays: int64Ptr(14300), Images: []string{"/uploads/l6.jpg"}},
			3: {ID: 3, Name: "Zeekr 001", Price: 20000, AdditionalServices: []string{"childSeat", "ps5"}},
		},
		active: model.DefaultAdditionalServices(),
		qr: map[string]*model.QRVerification{
			"TEST50": {Status: model.QRStatusSuccess, Message: "QR код успешно проверен", Data: &model.QRCodeData{Code: "TEST50", Discount: 50}},
			"USED":   {Status: model.QRStatusAlreadyUsed, Message: "Этот QR код уже был активирован ранее", Data: &model.QRCodeData{Code: "USED", Discount: 50, Active: true}},
		},
		submitResult: &model.BookingResult{
			TotalPrice:   42900,
			WhatsAppLink: "https://wa.me/79000000000?text=order",
			ItemsCount:   1,
		},
	}
}

func (f *fakeBookingAPI) ListCars(ctx context.Context) ([]model.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Car, 0, len(f.cars))
	for _, id := range []int64{1, 2, 3, 4, 5} {
		if car, ok := f.cars[id]; ok {
			out = append(out, car)
		}
	}
	return out, nil
}

func (f *fakeBookingAPI) PopularCars(ctx context.Context, limit int) ([]model.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.popular) > limit {
		return f.popular[:limit], nil
	}
	return f.popular, nil
}

func (f *fakeBookingAPI) GetCar(ctx context.Context, id int64) (*model.Car, error) {
	if f.getStarted != nil {
		f.getStarted <- id
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	car, ok := f.cars[id]
	if !ok {
		return nil, &bookingapi.APIError{StatusCode: 404, Detail: "Car not found"}
	}
	return &car, nil
}

func (f *fakeBookingAPI) CarServices(ctx context.Context, carID int64) ([]model.AdditionalService, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.carServices, f.carServicesErr
}

func (f *fakeBookingAPI) ActiveServices(ctx context.Context) ([]model.AdditionalService, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	return f.active, nil
}

func (f *fakeBookingAPI) UnavailableDates(ctx context.Context, carID int64, month string, includeNextMonth bool) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unavailable, f.unavailableErr
}

func (f *fakeBookingAPI) VerifyQRCode(ctx context.Context, code string) (*model.QRVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.qr[code]; ok {
		return v, nil
	}
	return &model.QRVerification{Status: model.QRStatusError, Message: "Неверный QR код"}, nil
}

func (f *fakeBookingAPI) SubmitCart(ctx context.Context, req bookingapi.CartBookingRequest) (*model.BookingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.submitResult, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(_ string, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.BookingSubmitted
	err    error
}

func (p *recordingPublisher) PublishBookingSubmitted(_ context.Context, e events.BookingSubmitted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

var errBrokenStore = errors.New("store unavailable")

type serviceFixture struct {
	api       *fakeBookingAPI
	store     *memStore
	snapshot  *CartSnapshot
	notifier  *recordingNotifier
	publisher *recordingPublisher
	catalog   CatalogService
	cart      CartService
	qr        QRService
	checkout  CheckoutService
}

func setupServiceTest(t *testing.T) *serviceFixture {
	t.Helper()
	fx := &serviceFixture{
		api:       newFakeBookingAPI(),
		store:     newMemStore(),
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
	}
	fx.snapshot = NewCartSnapshot(fx.store)
	t.Cleanup(fx.snapshot.Close)

	fx.catalog = NewCatalogService(fx.api, NewFetchGuard(), "https://baz-car-server.online")
	fx.cart = NewCartService(fx.catalog, fx.snapshot, fx.notifier)
	fx.qr = NewQRService(fx.api, fx.store)
	fx.checkout = NewCheckoutService(fx.cart, fx.qr, fx.api, fx.publisher, fx.notifier)
	return fx
}

func validInput() CartInput {
	return CartInput{
		CarID:            1,
		PickupDate:       "2024-06-01",
		ReturnDate:       "2024-06-04",
		DeliveryOptionID: model.DeliveryPickup,
		Name:             "Иван",
		Phone:            "+79000000000",
	}
}
