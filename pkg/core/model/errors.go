package model

import "errors"

// Sentinel errors shared by services and stores. Wrap them with fmt.Errorf
// and %w so callers can classify failures with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)
