package admission

import (
	"errors"
	"time"
)

// Record is one accepted presence submission. Day is a calendar date in the
// service timezone, formatted as 2006-01-02; there is no time-of-day component.
type Record struct {
	ID         string    `json:"id"`
	ClassName  string    `json:"class_name"`
	RollNumber string    `json:"roll_number"`
	Name       string    `json:"name"`
	Day        string    `json:"date"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// Submission is one attempt to mark presence.
type Submission struct {
	ClassName  string `json:"class_name"`
	RollNumber string `json:"roll_number"`
	Name       string `json:"name"`
	Code       string `json:"code"`
}

// Rejections are expected steady-state outcomes, not failures. Each maps to a
// plain message for the student; none of them leaves any write behind.
var (
	ErrClassNotOpen  = errors.New("class is not open for attendance")
	ErrInvalidCode   = errors.New("incorrect attendance code")
	ErrAlreadyMarked = errors.New("attendance already marked today")
	ErrLimitReached  = errors.New("attendance limit for today has been reached")
	ErrNameLocked    = errors.New("roll number already locked to a different name")
	ErrNameRequired  = errors.New("name required for first submission")
	ErrRollInvalid   = errors.New("roll number must be a number")
)

// IsRejection reports whether err is a validation rejection rather than a
// store failure. Handlers use this to pick between 4xx and 503.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrClassNotOpen, ErrInvalidCode, ErrAlreadyMarked,
		ErrLimitReached, ErrNameLocked, ErrNameRequired, ErrRollInvalid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
