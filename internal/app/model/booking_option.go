package model

// DeliveryOption is where the car is handed over. Price is a flat fee in rubles.
type DeliveryOption struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Price   int64  `json:"price"`
	IconKey string `json:"icon_key,omitempty"`
}

const (
	DeliveryPickup  = "pickup"
	DeliveryCity    = "city"
	DeliveryAirport = "airport"
)

type FeeType string

const (
	FeeFixed FeeType = "fixed"
	FeeDaily FeeType = "daily"
)

// AdditionalService is an optional paid extra attached to a cart item.
type AdditionalService struct {
	ID          int64   `json:"id,omitempty"`
	ServiceID   string  `json:"service_id"`
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Fee         int64   `json:"fee"`
	FeeType     FeeType `json:"fee_type"`
	IconKey     string  `json:"icon_key,omitempty"`
	IsActive    bool    `json:"is_active"`
	// CarIDs restricts the service to specific cars. Empty means any car.
	CarIDs []int64 `json:"car_ids,omitempty"`
}

// AvailableFor reports whether the service may be attached to car.
// The car's own eligible list, when present, must name the service too.
func (s AdditionalService) AvailableFor(car Car) bool {
	if !s.IsActive {
		return false
	}
	if len(s.CarIDs) > 0 {
		allowed := false
		for _, id := range s.CarIDs {
			if id == car.ID {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	if len(car.AdditionalServices) > 0 {
		for _, id := range car.AdditionalServices {
			if id == s.ServiceID {
				return true
			}
		}
		return false
	}
	return true
}

const (
	ServiceYoungDriver    = "youngDriver"
	ServiceChildSeat      = "childSeat"
	ServicePersonalDriver = "personalDriver"
	ServiceConsole        = "ps5"
	ServiceTransmission   = "transmission"
)

// consoleCarID is the only car that carries a game console.
const consoleCarID = 3

func DefaultDeliveryOptions() []DeliveryOption {
	return []DeliveryOption{
		{ID: DeliveryPickup, Label: "Самовывоз", Price: 0, IconKey: "Users2"},
		{ID: DeliveryCity, Label: "Доставка по городу", Price: 700, IconKey: "Truck"},
		{ID: DeliveryAirport, Label: "Доставка в аэропорт", Price: 1000, IconKey: "Truck"},
	}
}

func DefaultAdditionalServices() []AdditionalService {
	return []AdditionalService{
		{
			ServiceID:   ServiceYoungDriver,
			Label:       "Молодой водитель (18-21 год)",
			Description: "Дополнительная опция для водителей в возрасте от 18 до 21 года. Обеспечивает полное страховое покрытие.",
			Fee:         5000,
			FeeType:     FeeFixed,
			IconKey:     "User",
			IsActive:    true,
		},
		{
			ServiceID:   ServiceChildSeat,
			Label:       "Детское кресло",
			Description: "Безопасность и комфорт для ваших маленьких пассажиров. Устанавливается по запросу.",
			Fee:         700,
			FeeType:     FeeFixed,
			IconKey:     "Baby",
			IsActive:    true,
		},
		{
			ServiceID:   ServicePersonalDriver,
			Label:       "Личный водитель",
			Description: "Наслаждайтесь поездкой, доверив управление профессионалу.",
			Fee:         6000,
			FeeType:     FeeFixed,
			IconKey:     "UserCheck",
			IsActive:    true,
		},
		{
			ServiceID:   ServiceConsole,
			Label:       "PlayStation 5",
			Description: "Развлечения в дороге для детей и взрослых.",
			Fee:         1000,
			FeeType:     FeeFixed,
			IconKey:     "Gamepad2",
			IsActive:    true,
			CarIDs:      []int64{consoleCarID},
		},
		{
			ServiceID:   ServiceTransmission,
			Label:       "Передача руля",
			Description: "Возможность передать управление автомобилем другому водителю.",
			Fee:         4000,
			FeeType:     FeeFixed,
			IconKey:     "Settings",
			IsActive:    true,
		},
	}
}

// FindDeliveryOption looks up a delivery option by id.
func FindDeliveryOption(options []DeliveryOption, id string) (DeliveryOption, bool) {
	for _, o := range options {
		if o.ID == id {
			return o, true
		}
	}
	return DeliveryOption{}, false
}
