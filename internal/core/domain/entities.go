package domain

import (
	"time"
)

// Category is a report category (e.g. "Residuos sólidos").
type Category struct {
	ID          int    `json:"idCategoria"`
	Name        string `json:"nombre"`
	Description string `json:"descripcion,omitempty"`
}

// ReportSummary is the list view of a citizen report.
type ReportSummary struct {
	ID     int     `json:"idReporte"`
	Title  string  `json:"titulo"`
	Lat    float64 `json:"latitud"`
	Lon    float64 `json:"longitud"`
	Status string  `json:"estado"`
}

// Location returns the report coordinates.
func (r ReportSummary) Location() GeoPoint {
	return GeoPoint{Lat: r.Lat, Lon: r.Lon}
}

// ReportDetail is the full view of a citizen report.
type ReportDetail struct {
	ID          int     `json:"idReporte"`
	Title       string  `json:"titulo"`
	Description string  `json:"descripcion"`
	ImageURL    string  `json:"imagenUrl"`
	Status      string  `json:"estado"`
	ReportedAt  string  `json:"fechaReporte"`
	Address     string  `json:"direccion"`
	Reference   string  `json:"referencia"`
	Lat         float64 `json:"latitud"`
	Lon         float64 `json:"longitud"`
	UserName    string  `json:"nombreUsuario,omitempty"`
	UserEmail   string  `json:"correoUsuario,omitempty"`
	Anonymous   bool    `json:"esAnonimo"`
	Department  string  `json:"departamento"`
	Province    string  `json:"provincia"`
	District    string  `json:"distrito"`
}

// Location returns the report coordinates.
func (r ReportDetail) Location() GeoPoint {
	return GeoPoint{Lat: r.Lat, Lon: r.Lon}
}

// Report statuses used by the admin dashboard.
const (
	StatusPending  = "PENDIENTE"
	StatusApproved = "APROBADO"
	StatusRejected = "RECHAZADO"
	StatusResolved = "RESUELTO"
)

// NewReport is the payload submitted by a citizen.
type NewReport struct {
	CategoryID  int     `json:"categoriaId" validate:"required,gt=0"`
	Title       string  `json:"titulo" validate:"required,max=150"`
	Description string  `json:"descripcion" validate:"required,max=2000"`
	Address     string  `json:"direccion" validate:"required"`
	Reference   string  `json:"referencia" validate:"max=300"`
	Lat         float64 `json:"latitud" validate:"latitude"`
	Lon         float64 `json:"longitud" validate:"longitude"`
	ImageURL    string  `json:"imagenUrl" validate:"omitempty,url"`
	DistrictID  int     `json:"ubigeoId" validate:"required,gt=0"`
}

// Location returns the submitted coordinates.
func (r NewReport) Location() GeoPoint {
	return GeoPoint{Lat: r.Lat, Lon: r.Lon}
}

// AnonymousReport is a NewReport plus the caller identity the backend uses
// for throttling.
type AnonymousReport struct {
	NewReport
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent"`
}

// AnonymousCount is the number of anonymous reports an IP filed today.
type AnonymousCount struct {
	IP    string `json:"ipAddress"`
	Today int    `json:"cantidadHoy"`
}

// SubmitResult tells the caller how the submission went.
type SubmitResult struct {
	Anonymous bool `json:"anonymous"`
	// Remaining is the anonymous quota left for today; -1 when unknown or
	// not applicable.
	Remaining int `json:"remaining"`
}

// AnonymousQuota summarises what an IP may still file today.
type AnonymousQuota struct {
	IP        string `json:"ip"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Blocked   bool   `json:"blocked"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"correo" validate:"required,email"`
	Password string `json:"contrasena" validate:"required"`
}

// Registration is the sign-up payload.
type Registration struct {
	FirstName  string `json:"nombre" validate:"required"`
	LastName   string `json:"apellido" validate:"required"`
	Email      string `json:"correo" validate:"required,email"`
	Password   string `json:"contrasena" validate:"required,min=8"`
	Phone      string `json:"telefono"`
	Address    string `json:"direccion"`
	DistrictID int    `json:"idUbigeo" validate:"required,gt=0"`
}

// Session is what the backend returns on a successful login.
type Session struct {
	Token       string   `json:"token"`
	Type        string   `json:"tipo"`
	Email       string   `json:"correo"`
	PrimaryRole string   `json:"rolPrincipal"`
	Roles       []string `json:"roles"`
	FullName    string   `json:"nombreCompleto"`
}

// Roles.
const (
	RoleAdmin  = "ADMIN"
	RoleClient = "CLIENTE"
	RoleUser   = "USER"
)

// Principal is the identity decoded from a bearer token.
type Principal struct {
	Subject string `json:"sub"`
	Role    string `json:"rol"`
	Name    string `json:"nombre"`
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// TruckFrame is one rendered position of an animated truck.
type TruckFrame struct {
	Time     time.Time     `json:"time"`
	TruckID  string        `json:"truck_id"`
	Mode     string        `json:"mode"` // "fleet" | "follow"
	ReportID string        `json:"report_id,omitempty"`
	Location GeoPoint      `json:"location"`
	Mercator MercatorPoint `json:"mercator"`
	Progress float64       `json:"progress"`
	Label    string        `json:"label,omitempty"`
	// Removed marks the last frame of a truck that left the map.
	Removed bool `json:"removed,omitempty"`
}

// TruckArrival is emitted when a follow-mode truck reaches its report.
type TruckArrival struct {
	Time     time.Time `json:"time"`
	TruckID  string    `json:"truck_id"`
	ReportID string    `json:"report_id"`
	Location GeoPoint  `json:"location"`
}

// Simulation modes.
const (
	ModeFleet  = "fleet"
	ModeFollow = "follow"
)
