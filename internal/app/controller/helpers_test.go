package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/bazcar/bazcar-backend/internal/app/repository"
	"github.com/bazcar/bazcar-backend/internal/app/service"
	"github.com/bazcar/bazcar-backend/internal/db"
	"github.com/bazcar/bazcar-backend/internal/middleware"
	"github.com/bazcar/bazcar-backend/pkg/bookingapi"
)

const testSessionID = "test-session"

func int64Ptr(v int64) *int64 { return &v }

// fakeBookingServer stands in for the booking API
type fakeBookingServer struct {
	*httptest.Server

	mu        sync.Mutex
	submitted []bookingapi.CartBookingRequest
	submitErr int // status to fail submissions with, 0 for success
	listFail  bool
}

func newFakeBookingServer(t *testing.T) *fakeBookingServer {
	t.Helper()
	f := &fakeBookingServer{}

	cars := map[string]model.Car{
		"1": {ID: 1, Name: "LiXiang L6", Price: 15900, Price3PlusDays: int64Ptr(14300), Images: []string{"/uploads/l6.jpg"}},
		"3": {ID: 3, Name: "Zeekr 001", Price: 20000, AdditionalServices: []string{model.ServiceChildSeat, model.ServiceConsole}},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/cars/{$}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		fail := f.listFail
		f.mu.Unlock()
		if fail {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
			return
		}
		writeJSON(w, http.StatusOK, []model.Car{cars["1"], cars["3"]})
	})
	mux.HandleFunc("GET /api/v1/cars/popular", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []model.Car{cars["3"]})
	})
	mux.HandleFunc("GET /api/v1/cars/{id}", func(w http.ResponseWriter, r *http.Request) {
		car, ok := cars[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Car not found"})
			return
		}
		writeJSON(w, http.StatusOK, car)
	})
	mux.HandleFunc("GET /api/v1/cars/{id}/services", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.DefaultAdditionalServices()[:2])
	})
	mux.HandleFunc("GET /api/v1/additional-services/active", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.DefaultAdditionalServices())
	})
	mux.HandleFunc("GET /api/v1/booking/unavailable-dates", func(w http.ResponseWriter, r *http.Request) {
		dates := []string{r.URL.Query().Get("month") + "-10"}
		writeJSON(w, http.StatusOK, map[string][]string{"unavailable_dates": dates})
	})
	mux.HandleFunc("GET /api/v1/qr/{code}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("code") {
		case "TEST50":
			writeJSON(w, http.StatusOK, model.QRVerification{
				Status: model.QRStatusSuccess,
				Data:   &model.QRCodeData{Code: "TEST50", Discount: 50},
			})
		case "USED":
			writeJSON(w, http.StatusOK, model.QRVerification{
				Status: model.QRStatusAlreadyUsed,
				Data:   &model.QRCodeData{Code: "USED", Discount: 50, Active: true},
			})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "QR code not found"})
		}
	})
	mux.HandleFunc("POST /api/v1/booking/cart", func(w http.ResponseWriter, r *http.Request) {
		var req bookingapi.CartBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}
		f.mu.Lock()
		status := f.submitErr
		if status == 0 {
			f.submitted = append(f.submitted, req)
		}
		f.mu.Unlock()
		if status != 0 {
			writeJSON(w, status, map[string]string{"detail": "Автомобиль занят на выбранные даты"})
			return
		}
		writeJSON(w, http.StatusOK, model.BookingResult{
			TotalPrice:   42900,
			WhatsAppLink: "https://wa.me/79000000000?text=order",
			ItemsCount:   len(req.Items),
		})
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

func (f *fakeBookingServer) submissions() []bookingapi.CartBookingRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bookingapi.CartBookingRequest(nil), f.submitted...)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type controllerFixture struct {
	booking  *fakeBookingServer
	snapshot *service.CartSnapshot
	catalog  service.CatalogService
	cart     service.CartService
	qr       service.QRService
	checkout service.CheckoutService
	router   *gin.Engine
}

// setupControllerTest wires the real services to a fake booking API and an
// in-memory session store, with every request in testSessionID.
func setupControllerTest(t *testing.T) *controllerFixture {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	fx := &controllerFixture{booking: newFakeBookingServer(t)}

	client, err := bookingapi.NewClient(bookingapi.Config{
		BaseURL: fx.booking.URL + "/api/v1",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	store := repository.NewSessionRepository(testDB)
	fx.snapshot = service.NewCartSnapshot(store)
	t.Cleanup(fx.snapshot.Close)

	fx.catalog = service.NewCatalogService(client, service.NewFetchGuard(), fx.booking.URL)
	fx.cart = service.NewCartService(fx.catalog, fx.snapshot, nil)
	fx.qr = service.NewQRService(client, store)
	fx.checkout = service.NewCheckoutService(fx.cart, fx.qr, client, nil, nil)

	gin.SetMode(gin.TestMode)
	fx.router = gin.New()
	fx.router.Use(func(c *gin.Context) {
		c.Set(middleware.SessionIDKey, testSessionID)
		c.Next()
	})
	return fx
}

func (fx *controllerFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func validCartRequest() gin.H {
	return gin.H{
		"car_id":          1,
		"pickup_date":     "2024-06-01",
		"return_date":     "2024-06-04",
		"delivery_option": model.DeliveryPickup,
		"name":            "Иван",
		"phone":           "+79000000000",
	}
}
