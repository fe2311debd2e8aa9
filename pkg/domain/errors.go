package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrDuplicateEvent     = errors.New("event already exists")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidLocation    = errors.New("invalid location")
	ErrCityNotFound       = errors.New("city not found")
	ErrExternalAPIFailure = errors.New("external API failure")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}
