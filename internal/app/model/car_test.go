package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServerURL = "https://baz-car-server.online"

func TestCar_Normalize(t *testing.T) {
	raw := `{
		"id": 7,
		"name": "Zeekr 001",
		"price": 20000,
		"images": ["/uploads/a.jpg", "", "https://cdn.example/b.jpg", "c.jpg"],
		"specifications": {"seats": 5, "max_speed": 200, "acceleration_0_100": 3.8, "range": 0, "engine": "Электро"},
		"fuelType": "electric",
		"additional_services": null
	}`
	var car Car
	require.NoError(t, json.Unmarshal([]byte(raw), &car))

	out := car.Normalize(testServerURL + "/")

	assert.Equal(t, []string{
		testServerURL + "/uploads/a.jpg",
		"https://cdn.example/b.jpg",
		"c.jpg",
	}, out.Images)
	assert.Equal(t, "5 мест", out.Specifications["seating_ru"])
	assert.Equal(t, "200 км/ч", out.Specifications["topSpeed_ru"])
	assert.Equal(t, "3.8 сек", out.Specifications["acceleration_ru"])
	assert.Equal(t, "Электро", out.Specifications["engine_ru"])
	assert.NotContains(t, out.Specifications, "range_ru", "zero values get no display string")
	assert.Equal(t, "electric", out.FuelType)
	assert.NotNil(t, out.AdditionalServices)

	// the receiver is untouched
	assert.Len(t, car.Images, 4)
	assert.NotContains(t, car.Specifications, "seating_ru")
}

func TestCar_EffectiveFuelType(t *testing.T) {
	assert.Equal(t, "petrol", Car{FuelType: "petrol", FuelTypeAlt: "diesel"}.EffectiveFuelType())
	assert.Equal(t, "diesel", Car{FuelTypeAlt: "diesel"}.EffectiveFuelType())
}

func TestCar_SnapshotIsDeep(t *testing.T) {
	p := int64(14300)
	car := Car{
		ID:                 1,
		Price3PlusDays:     &p,
		Images:             []string{"a"},
		AdditionalServices: []string{ServiceChildSeat},
		Specifications:     map[string]interface{}{"seats": 5},
	}
	snap := car.Snapshot()

	*car.Price3PlusDays = 1
	car.Images[0] = "b"
	car.AdditionalServices[0] = ServiceConsole
	car.Specifications["seats"] = 7

	assert.Equal(t, int64(14300), *snap.Price3PlusDays)
	assert.Equal(t, "a", snap.Images[0])
	assert.Equal(t, ServiceChildSeat, snap.AdditionalServices[0])
	assert.Equal(t, 5, snap.Specifications["seats"])
}

func TestAdditionalService_AvailableFor(t *testing.T) {
	console := AdditionalService{ServiceID: ServiceConsole, IsActive: true, CarIDs: []int64{3}}
	seat := AdditionalService{ServiceID: ServiceChildSeat, IsActive: true}

	tests := []struct {
		name    string
		service AdditionalService
		car     Car
		want    bool
	}{
		{"unrestricted", seat, Car{ID: 1}, true},
		{"inactive", AdditionalService{ServiceID: ServiceChildSeat}, Car{ID: 1}, false},
		{"car id restriction met", console, Car{ID: 3}, true},
		{"car id restriction missed", console, Car{ID: 1}, false},
		{"car list names it", seat, Car{ID: 3, AdditionalServices: []string{ServiceChildSeat}}, true},
		{"car list omits it", seat, Car{ID: 3, AdditionalServices: []string{ServiceConsole}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.service.AvailableFor(tt.car))
		})
	}
}
