package model

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of rental dates.
const DateLayout = "2006-01-02"

// CartItem is one rental configuration pending submission. Car,
// DeliveryOption and SelectedServices are snapshots taken when the item was
// added, so later catalog changes do not reprice it.
type CartItem struct {
	ID             string         `json:"id"`
	Car            Car            `json:"car"`
	PickupDate     string         `json:"pickupDate"`
	ReturnDate     string         `json:"returnDate"`
	DeliveryOption DeliveryOption `json:"deliveryOption"`
	Services       []string       `json:"services"`
	Name           string         `json:"name"`
	Phone          string         `json:"phone"`
	Email          string         `json:"email,omitempty"`

	// SelectedServices are the chosen add-ons as priced when selected.
	SelectedServices []SelectedService `json:"selectedServices,omitempty"`

	RentalDays int   `json:"rentalDays"`
	DailyPrice int64 `json:"dailyPrice"`
	TotalPrice int64 `json:"totalPrice"`

	CreatedAt time.Time `json:"createdAt"`
}

// SelectedService is an add-on frozen at the fee it had when it was chosen.
type SelectedService struct {
	ServiceID string  `json:"service_id"`
	Label     string  `json:"label"`
	Fee       int64   `json:"fee"`
	FeeType   FeeType `json:"fee_type"`
}

// FreezeService captures the current price of s.
func FreezeService(s AdditionalService) SelectedService {
	return SelectedService{
		ServiceID: s.ServiceID,
		Label:     s.Label,
		Fee:       s.Fee,
		FeeType:   s.FeeType,
	}
}

// legacyServiceFlags are the boolean add-on fields of older cart snapshots.
var legacyServiceFlags = []string{
	ServiceYoungDriver,
	ServiceChildSeat,
	ServicePersonalDriver,
	ServiceConsole,
	ServiceTransmission,
}

// UnmarshalJSON accepts both the current services list and snapshots written
// with one boolean field per add-on.
func (i *CartItem) UnmarshalJSON(data []byte) error {
	type alias CartItem
	if err := json.Unmarshal(data, (*alias)(i)); err != nil {
		return err
	}

	if i.Services != nil {
		i.Services = NormalizeServices(i.Services)
		return nil
	}

	var flags map[string]json.RawMessage
	if err := json.Unmarshal(data, &flags); err != nil {
		return err
	}
	var selected []string
	for _, name := range legacyServiceFlags {
		raw, ok := flags[name]
		if !ok {
			continue
		}
		var on bool
		if err := json.Unmarshal(raw, &on); err == nil && on {
			selected = append(selected, name)
		}
	}
	i.Services = NormalizeServices(selected)
	return nil
}

// NormalizeServices returns a sorted copy of ids with duplicates and blanks removed.
func NormalizeServices(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// HasService reports whether serviceID is selected on the item.
func (i CartItem) HasService(serviceID string) bool {
	for _, s := range i.Services {
		if s == serviceID {
			return true
		}
	}
	return false
}

// ConfigurationKey identifies a rental configuration. Two items with the same
// key are duplicates regardless of contact details.
func (i CartItem) ConfigurationKey() string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(i.Car.ID, 10))
	b.WriteByte('|')
	b.WriteString(i.PickupDate)
	b.WriteByte('|')
	b.WriteString(i.ReturnDate)
	b.WriteByte('|')
	b.WriteString(i.DeliveryOption.ID)
	b.WriteByte('|')
	b.WriteString(strings.Join(NormalizeServices(i.Services), ","))
	return b.String()
}

// HasContact reports whether the item carries the contact fields checkout needs.
func (i CartItem) HasContact() bool {
	return strings.TrimSpace(i.Name) != "" && strings.TrimSpace(i.Phone) != ""
}

// SelectedService returns the frozen line for serviceID, if the item has one.
func (i CartItem) SelectedService(serviceID string) (SelectedService, bool) {
	for _, s := range i.SelectedServices {
		if s.ServiceID == serviceID {
			return s, true
		}
	}
	return SelectedService{}, false
}

// Clone returns a deep copy of the item.
func (i CartItem) Clone() CartItem {
	out := i
	out.Car = i.Car.Snapshot()
	out.Services = append([]string(nil), i.Services...)
	out.SelectedServices = append([]SelectedService(nil), i.SelectedServices...)
	return out
}

// CloneItems deep-copies a slice of cart items.
func CloneItems(items []CartItem) []CartItem {
	out := make([]CartItem, len(items))
	for idx, item := range items {
		out[idx] = item.Clone()
	}
	return out
}
