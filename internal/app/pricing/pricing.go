// Package pricing computes rental quotes. Every function here is pure: the
// same inputs always give the same quote, and nothing is read from or written
// to the outside world. The live preview prices against the current catalog
// with Calculate; cart items are priced from their frozen add-ons with ForItem.
package pricing

import (
	"math"
	"time"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/shopspring/decimal"
)

// DiscountThresholdDays is the rental length from which the reduced daily
// rate applies.
const DiscountThresholdDays = 3

const day = 24 * time.Hour

// Line is the cost of one selected add-on.
type Line struct {
	ServiceID string        `json:"service_id"`
	Label     string        `json:"label"`
	FeeType   model.FeeType `json:"fee_type"`
	Amount    int64         `json:"amount"`
}

// Quote is the price of one rental configuration.
type Quote struct {
	RentalDays   int    `json:"rental_days"`
	DailyPrice   int64  `json:"daily_price"`
	RentalCost   int64  `json:"rental_cost"`
	DeliveryCost int64  `json:"delivery_cost"`
	ServicesCost int64  `json:"services_cost"`
	TotalPrice   int64  `json:"total_price"`
	Lines        []Line `json:"lines"`
}

// Input is everything a quote depends on.
type Input struct {
	Car        model.Car
	PickupDate string
	ReturnDate string
	Delivery   model.DeliveryOption
	// Catalog is the set of known add-on services.
	Catalog []model.AdditionalService
	// Selected holds the chosen service ids.
	Selected []string
}

// RentalDays returns the number of billable days between two YYYY-MM-DD
// dates: the span rounded up to whole days, at least one when the dates
// differ. It returns 0 when a date is malformed or return is not after pickup.
func RentalDays(pickupDate, returnDate string) int {
	pickup, err := time.Parse(model.DateLayout, pickupDate)
	if err != nil {
		return 0
	}
	ret, err := time.Parse(model.DateLayout, returnDate)
	if err != nil {
		return 0
	}
	return DaysBetween(pickup, ret)
}

// DaysBetween is RentalDays for parsed instants.
func DaysBetween(pickup, ret time.Time) int {
	if !ret.After(pickup) {
		return 0
	}
	diff := ret.Sub(pickup)
	days := int(math.Ceil(float64(diff) / float64(day)))
	if days == 0 {
		days = 1
	}
	return days
}

// DailyRate picks the tiered daily price for a rental of the given length.
func DailyRate(car model.Car, rentalDays int) int64 {
	if rentalDays >= DiscountThresholdDays && car.Price3PlusDays != nil && *car.Price3PlusDays > 0 {
		return *car.Price3PlusDays
	}
	return car.Price
}

// ServiceFee is what one add-on costs for a rental of the given length.
func ServiceFee(s model.AdditionalService, rentalDays int) int64 {
	return fee(s.Fee, s.FeeType, rentalDays)
}

func fee(amount int64, feeType model.FeeType, rentalDays int) int64 {
	if feeType == model.FeeDaily {
		return amount * int64(rentalDays)
	}
	return amount
}

// baseQuote prices the car and delivery. ok is false for zero-day
// configurations, which price at zero.
func baseQuote(car model.Car, pickupDate, returnDate string, delivery model.DeliveryOption) (q Quote, ok bool) {
	days := RentalDays(pickupDate, returnDate)
	if days == 0 {
		return Quote{DailyPrice: car.Price, Lines: []Line{}}, false
	}

	q = Quote{
		RentalDays:   days,
		DailyPrice:   DailyRate(car, days),
		DeliveryCost: delivery.Price,
		Lines:        []Line{},
	}
	q.RentalCost = q.DailyPrice * int64(days)
	return q, true
}

func (q *Quote) addLine(serviceID, label string, feeType model.FeeType, amount int64) {
	q.ServicesCost += amount
	q.Lines = append(q.Lines, Line{
		ServiceID: serviceID,
		Label:     label,
		FeeType:   feeType,
		Amount:    amount,
	})
}

func (q *Quote) finish() {
	q.TotalPrice = q.RentalCost + q.DeliveryCost + q.ServicesCost
}

// Calculate prices a rental configuration. Zero-day configurations
// (bad dates, return not after pickup) price at zero; rejecting them is the
// caller's job.
func Calculate(in Input) Quote {
	q, ok := baseQuote(in.Car, in.PickupDate, in.ReturnDate, in.Delivery)
	if !ok {
		return q
	}

	selected := make(map[string]struct{}, len(in.Selected))
	for _, id := range in.Selected {
		selected[id] = struct{}{}
	}
	for _, svc := range in.Catalog {
		if _, ok := selected[svc.ServiceID]; !ok {
			continue
		}
		if !svc.AvailableFor(in.Car) {
			continue
		}
		q.addLine(svc.ServiceID, svc.Label, svc.FeeType, ServiceFee(svc, q.RentalDays))
		// a service id listed twice in the catalog is charged once
		delete(selected, svc.ServiceID)
	}

	q.finish()
	return q
}

// FreezeServices captures the catalog entries of the selected ids that are
// offered for car, in catalog order.
func FreezeServices(car model.Car, selected []string, catalog []model.AdditionalService) []model.SelectedService {
	want := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		want[id] = struct{}{}
	}
	out := make([]model.SelectedService, 0, len(selected))
	for _, svc := range catalog {
		if _, ok := want[svc.ServiceID]; !ok || !svc.AvailableFor(car) {
			continue
		}
		out = append(out, model.FreezeService(svc))
		delete(want, svc.ServiceID)
	}
	return out
}

// ForItem prices a cart item from its stored fields. Add-ons are charged at
// the fees frozen on the item, never at current catalog prices.
func ForItem(item model.CartItem) Quote {
	q, ok := baseQuote(item.Car, item.PickupDate, item.ReturnDate, item.DeliveryOption)
	if !ok {
		return q
	}
	for _, s := range item.SelectedServices {
		q.addLine(s.ServiceID, s.Label, s.FeeType, fee(s.Fee, s.FeeType, q.RentalDays))
	}
	q.finish()
	return q
}

// Apply writes the derived price fields of q onto item.
func Apply(item *model.CartItem, q Quote) {
	item.RentalDays = q.RentalDays
	item.DailyPrice = q.DailyPrice
	item.TotalPrice = q.TotalPrice
}

// CartTotal sums the stored totals of items.
func CartTotal(items []model.CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.TotalPrice
	}
	return total
}

// ApplyDiscount returns total reduced by percent, rounded half-up to whole
// rubles. percent is clamped to [0, 100].
func ApplyDiscount(total int64, percent int) (discounted int64, amount int64) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	t := decimal.NewFromInt(total)
	off := t.Mul(decimal.NewFromInt(int64(percent))).Div(decimal.NewFromInt(100)).Round(0)
	amount = off.IntPart()
	return total - amount, amount
}
