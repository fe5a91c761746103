package services

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnavailable       = errors.New("unavailable")
)

// Error is a client-visible failure carrying the HTTP status it maps to.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func notFound(what string) error {
	return NewError(fiber.StatusNotFound, "not_found", fmt.Errorf("%s %w", what, ErrNotFound))
}

func forbidden(msg string) error {
	return NewError(fiber.StatusForbidden, "forbidden", fmt.Errorf("%s: %w", msg, ErrForbidden))
}

func conflict(msg string) error {
	return NewError(fiber.StatusConflict, "conflict", fmt.Errorf("%s: %w", msg, ErrConflict))
}

func invalidTransition(from, to string) error {
	return NewError(fiber.StatusConflict, "invalid_transition", fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidTransition))
}

func invalidInput(format string, args ...interface{}) error {
	return NewError(fiber.StatusBadRequest, "invalid_input", fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput))
}

func unavailable(msg string) error {
	return NewError(fiber.StatusServiceUnavailable, "unavailable", fmt.Errorf("%s: %w", msg, ErrUnavailable))
}

// checkID turns an id that cannot be a row key into a not-found before it reaches a uuid column.
func checkID(id, what string) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound(what)
	}
	return nil
}

func uuidFilter(field, value string) error {
	if value == "" {
		return nil
	}
	if _, err := uuid.Parse(value); err != nil {
		return invalidInput("%s must be a uuid", field)
	}
	return nil
}

// notFoundOr maps gorm.ErrRecordNotFound to a typed not-found error and wraps everything else.
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
