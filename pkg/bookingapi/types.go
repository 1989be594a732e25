package bookingapi

// CartBookingItem is one rental line of a cart submission.
type CartBookingItem struct {
	CarID                int64    `json:"car_id"`
	PickupDate           string   `json:"pickup_date"`
	ReturnDate           string   `json:"return_date"`
	DeliveryOptionID     string   `json:"delivery_option_id,omitempty"`
	AdditionalServiceIDs []string `json:"additional_service_ids,omitempty"`
}

// CartBookingRequest is the body of POST /booking/cart.
type CartBookingRequest struct {
	Items           []CartBookingItem `json:"items"`
	CustomerName    string            `json:"customer_name"`
	CustomerPhone   string            `json:"customer_phone"`
	CustomerEmail   string            `json:"customer_email,omitempty"`
	QRCode          string            `json:"qr_code,omitempty"`
	DiscountPercent *int              `json:"discount_percent,omitempty"`
}

type unavailableDatesResponse struct {
	UnavailableDates []string `json:"unavailable_dates"`
}

// errorResponse is the FastAPI-style error body of the booking API.
type errorResponse struct {
	Detail  interface{} `json:"detail"`
	Message string      `json:"message"`
}
