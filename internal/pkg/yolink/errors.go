package yolink

import (
	"errors"
	"fmt"
)

var (
	ErrAuth    = errors.New("yolink authentication failed")
	ErrAPI     = errors.New("yolink api request failed")
	ErrPartial = errors.New("yolink device state unavailable")
)

// AuthError is returned when no account token could be obtained.
type AuthError struct {
	Code string
	Desc string
	Err  error
}

func (e *AuthError) Error() string {
	switch {
	case e.Desc != "":
		return e.Desc
	case e.Err != nil:
		return fmt.Sprintf("YoLink Auth Error: %v", e.Err)
	default:
		return fmt.Sprintf("YoLink Auth Error (Code: %s)", e.Code)
	}
}

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

func (e *AuthError) Unwrap() error { return e.Err }

// APIError is returned when the device list request is rejected or malformed.
type APIError struct {
	Code string
	Desc string
	// Raw holds the unexpected response body when the platform gave no description.
	Raw string
	Err error
}

func (e *APIError) Error() string {
	switch {
	case e.Desc != "":
		return e.Desc
	case e.Err != nil:
		return fmt.Sprintf("YoLink API Error getting device list: %v", e.Err)
	default:
		return "YoLink API Error getting device list: " + e.Raw
	}
}

func (e *APIError) Is(target error) bool { return target == ErrAPI }

func (e *APIError) Unwrap() error { return e.Err }

// TokenRejected reports whether the platform refused the account token itself.
func (e *APIError) TokenRejected() bool {
	return e.Code == CodeTokenInvalid
}

// PartialError marks a single device whose state could not be fetched.
type PartialError struct {
	DeviceID string
	Code     string
	Desc     string
	Err      error
}

func (e *PartialError) Error() string {
	msg := e.Desc
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "code " + e.Code
	}
	return fmt.Sprintf("could not fetch state for %s: %s", e.DeviceID, msg)
}

func (e *PartialError) Is(target error) bool { return target == ErrPartial }

func (e *PartialError) Unwrap() error { return e.Err }
