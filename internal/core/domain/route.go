package domain

import "time"

// Leg is one stretch of an itinerary.
type Leg struct {
	To         GeoPoint      `json:"to" mapstructure:"to"`
	Duration   time.Duration `json:"duration" mapstructure:"duration"`
	PauseAfter time.Duration `json:"pause_after" mapstructure:"pause_after"`
}

// Itinerary is the static route of one truck: a start point and the legs
// driven from it in order.
type Itinerary struct {
	Start GeoPoint `json:"start"`
	Legs  []Leg    `json:"legs"`
}

// Duration is the total driving plus pause time.
func (it Itinerary) Duration() time.Duration {
	var d time.Duration
	for _, l := range it.Legs {
		d += l.Duration + l.PauseAfter
	}
	return d
}

// Address is a geocoding result.
type Address struct {
	DisplayName string   `json:"display_name"`
	Location    GeoPoint `json:"location"`
	PlaceID     int64    `json:"place_id,omitempty"`
}

// AddressSuggestion is an address annotated with the district check.
type AddressSuggestion struct {
	Address
	Inside  bool   `json:"inside"`
	Precise bool   `json:"precise"`
	Source  string `json:"source"`
}

// StatusUpdate is the admin payload to move a report through its workflow.
type StatusUpdate struct {
	Status string `json:"nuevoEstado" validate:"required,oneof=PENDIENTE APROBADO RECHAZADO RESUELTO"`
}
