package classroom

import (
	"errors"
	"time"
)

// Class is the per-class configuration governing whether submissions are
// accepted and under what code and daily limit.
type Class struct {
	Name       string    `json:"class_name"`
	Code       string    `json:"code"`
	DailyLimit int       `json:"daily_limit"`
	IsOpen     bool      `json:"is_open"`
	CreatedAt  time.Time `json:"created_at"`
}

// Defaults applied when a class is created without explicit settings.
const (
	DefaultCode  = "1234"
	DefaultLimit = 10
)

// Expected, user-reportable conflicts. Anything else coming out of this
// package is a store failure.
var (
	ErrClassExists      = errors.New("class already exists")
	ErrClassNotFound    = errors.New("class not found")
	ErrAnotherClassOpen = errors.New("close other open classes first")
	ErrInvalidInput     = errors.New("invalid input")
)
