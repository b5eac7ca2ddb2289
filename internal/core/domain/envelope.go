package domain

import (
	"encoding/json"
	"fmt"
)

// JSend statuses.
const (
	JSendSuccess = "success"
	JSendFail    = "fail"
	JSendError   = "error"
)

// Envelope is the uniform response wrapper used by the EcoAlerta backend.
type Envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message *string         `json:"message"`
}

// Decode unpacks a success envelope into v. Fail and error envelopes become
// a *BackendError.
func (e *Envelope) Decode(httpStatus int, v any) error {
	if e.Status != JSendSuccess {
		msg := ""
		if e.Message != nil {
			msg = *e.Message
		}
		return &BackendError{HTTPStatus: httpStatus, Status: e.Status, Message: msg}
	}
	if v == nil || len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode envelope data: %w", err)
	}
	return nil
}

// BackendError is a non-success answer from the backend.
type BackendError struct {
	HTTPStatus int
	Status     string
	Message    string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend %s (http %d)", e.Status, e.HTTPStatus)
	}
	return fmt.Sprintf("backend %s (http %d): %s", e.Status, e.HTTPStatus, e.Message)
}
