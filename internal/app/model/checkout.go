package model

// CheckoutState is the position of a session in the checkout flow.
type CheckoutState string

const (
	CheckoutReviewing  CheckoutState = "reviewing"
	CheckoutConfirming CheckoutState = "confirming"
	CheckoutSubmitted  CheckoutState = "submitted"
)

// Contact is the order-level contact sent with a booking.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// BookingBreakdownItem is one car line of the booking API's price breakdown.
type BookingBreakdownItem struct {
	CarID     int64  `json:"car_id"`
	CarName   string `json:"car_name"`
	ItemTotal int64  `json:"item_total"`
}

type BookingBreakdown struct {
	Subtotal        int64                  `json:"subtotal"`
	DiscountAmount  int64                  `json:"discount_amount"`
	DiscountPercent int                    `json:"discount_percent"`
	Items           []BookingBreakdownItem `json:"items"`
}

// BookingResult is what a successful cart submission returns.
type BookingResult struct {
	TotalPrice   int64            `json:"total_price"`
	WhatsAppLink string           `json:"whatsapp_link"`
	ItemsCount   int              `json:"items_count"`
	Breakdown    BookingBreakdown `json:"breakdown"`
}
