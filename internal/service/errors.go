package service

import (
	"errors"
	"sort"
	"strings"

	"docvault/internal/validation"
)

var (
	ErrIDRequired         = errors.New("id is required")
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("email is already used by another user")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("missing or invalid access token")
	ErrStoreFailed        = errors.New("failed to store document")
	ErrFileMissing        = errors.New("stored file is missing")
)

// ValidationError carries per-field messages for a rejected request.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, strings.Join(e.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(res validation.Result) error {
	return &ValidationError{Fields: res.Errors}
}

func fieldError(field, msg string) error {
	var res validation.Result
	res.Add(field, msg)
	return newValidationError(res)
}
