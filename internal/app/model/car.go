package model

import (
	"fmt"
	"strings"
	"time"
)

// Car is a rentable vehicle as returned by the booking API.
// Cars are read-only here; the booking API owns them.
type Car struct {
	ID                 int64                  `json:"id"`
	Name               string                 `json:"name"`
	Slug               string                 `json:"slug,omitempty"`
	Category           string                 `json:"category,omitempty"`
	CategoryRU         string                 `json:"category_ru,omitempty"`
	Price              int64                  `json:"price"`
	Price3PlusDays     *int64                 `json:"price_3plus_days,omitempty"`
	Images             []string               `json:"images"`
	Description        string                 `json:"description,omitempty"`
	Features           []string               `json:"features,omitempty"`
	Specifications     map[string]interface{} `json:"specifications,omitempty"`
	Available          *bool                  `json:"available,omitempty"`
	Rating             *float64               `json:"rating,omitempty"`
	FuelType           string                 `json:"fuel_type,omitempty"`
	FuelTypeAlt        string                 `json:"fuelType,omitempty"`
	Restrictions       map[string]string      `json:"restrictions,omitempty"`
	AdditionalServices []string               `json:"additional_services"`
	CreatedAt          *time.Time             `json:"created_at,omitempty"`
	UpdatedAt          *time.Time             `json:"updated_at,omitempty"`
}

// specDisplay maps booking API specification keys to the display key and unit
// the site renders.
var specDisplay = []struct {
	source string
	target string
	format string
}{
	{"engine", "engine_ru", "%v"},
	{"seats", "seating_ru", "%v мест"},
	{"max_speed", "topSpeed_ru", "%v км/ч"},
	{"acceleration_0_100", "acceleration_ru", "%v сек"},
	{"range", "range_ru", "%v км"},
	{"trunk_volume", "cargo_ru", "%v л"},
	{"power", "power_ru", "%v л.с."},
}

// Normalize resolves relative image paths against serverBaseURL, adds display
// strings for known specification fields and fills fuel_type from its
// camel-case alias. It returns a new Car; the receiver is not modified.
func (c Car) Normalize(serverBaseURL string) Car {
	out := c

	out.Images = make([]string, 0, len(c.Images))
	for _, img := range c.Images {
		if resolved := ResolveImageURL(img, serverBaseURL); resolved != "" {
			out.Images = append(out.Images, resolved)
		}
	}

	if c.Specifications != nil {
		specs := make(map[string]interface{}, len(c.Specifications)+len(specDisplay))
		for k, v := range c.Specifications {
			specs[k] = v
		}
		for _, d := range specDisplay {
			if v, ok := c.Specifications[d.source]; ok && !isZeroSpec(v) {
				specs[d.target] = fmt.Sprintf(d.format, v)
			}
		}
		out.Specifications = specs
	}

	if out.FuelType == "" {
		out.FuelType = c.FuelTypeAlt
	}

	out.AdditionalServices = append([]string{}, c.AdditionalServices...)
	return out
}

// EffectiveFuelType prefers fuel_type and falls back to fuelType.
func (c Car) EffectiveFuelType() string {
	if c.FuelType != "" {
		return c.FuelType
	}
	return c.FuelTypeAlt
}

// Snapshot returns a deep copy suitable for embedding in a cart item, so later
// catalog changes never leak into items that were already added.
func (c Car) Snapshot() Car {
	out := c
	out.Images = append([]string(nil), c.Images...)
	out.Features = append([]string(nil), c.Features...)
	out.AdditionalServices = append([]string(nil), c.AdditionalServices...)
	if c.Price3PlusDays != nil {
		p := *c.Price3PlusDays
		out.Price3PlusDays = &p
	}
	if c.Specifications != nil {
		out.Specifications = make(map[string]interface{}, len(c.Specifications))
		for k, v := range c.Specifications {
			out.Specifications[k] = v
		}
	}
	if c.Restrictions != nil {
		out.Restrictions = make(map[string]string, len(c.Restrictions))
		for k, v := range c.Restrictions {
			out.Restrictions[k] = v
		}
	}
	return out
}

// ResolveImageURL turns an image path from the booking API into an absolute URL.
func ResolveImageURL(path, serverBaseURL string) string {
	switch {
	case path == "":
		return ""
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return path
	case strings.HasPrefix(path, "/"):
		return strings.TrimRight(serverBaseURL, "/") + path
	default:
		return path
	}
}

func isZeroSpec(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	}
	return false
}
