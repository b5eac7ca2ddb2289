package domain

import "errors"

var (
	// ErrOutsideDistrict is returned when a location fails the geofence.
	ErrOutsideDistrict = errors.New("location is outside the district")
	// ErrDailyLimitReached is returned when an IP used its anonymous quota.
	ErrDailyLimitReached = errors.New("anonymous daily report limit reached")
	// ErrIPBlocked is returned when the backend has banned the caller IP.
	ErrIPBlocked = errors.New("ip address is blocked")
	// ErrUnauthorized is returned when a bearer token is missing or unreadable.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the principal lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrBoundaryUnavailable is returned when no district polygon could be loaded.
	ErrBoundaryUnavailable = errors.New("district boundary unavailable")
	// ErrInvalidInput is returned when a payload fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a lookup has no result.
	ErrNotFound = errors.New("not found")
)
