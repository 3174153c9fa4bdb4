package admission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"classmark/internal/classroom"
)

// ClassSource resolves class configuration. *classroom.Repository implements it.
type ClassSource interface {
	Get(ctx context.Context, name string) (*classroom.Class, error)
}

// Store is the ledger surface the admission checks run against.
// *Repository implements it over Postgres; tests use an in-memory fake.
type Store interface {
	// HasRecord reports whether a record exists for (class, roll, day).
	HasRecord(ctx context.Context, class, roll, day string) (bool, error)
	// CountForDay returns how many records exist for (class, day).
	CountForDay(ctx context.Context, class, day string) (int, error)
	// LockedName returns the name bound to (class, roll), if any.
	LockedName(ctx context.Context, class, roll string) (string, bool, error)
	// LockRoll binds name to (class, roll) first-write-wins and returns the
	// name that holds the binding afterwards.
	LockRoll(ctx context.Context, class, roll, name string) (string, error)
	// InsertRecord appends rec iff no record exists for its (class, roll, day)
	// and the day count is below limit. Returns false when nothing was written.
	InsertRecord(ctx context.Context, rec Record, limit int) (bool, error)
}

// Service decides, for a single submission attempt, whether a new attendance
// record may be created, and maintains the roll-to-name lock.
type Service struct {
	classes ClassSource
	store   Store
	now     func() time.Time
	loc     *time.Location
}

// NewService creates the admission service. loc fixes the calendar-day
// timezone; now may be nil for the wall clock.
func NewService(classes ClassSource, store Store, loc *time.Location, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{classes: classes, store: store, now: now, loc: loc}
}

// Today returns the current calendar date in the service timezone.
func (s *Service) Today() string {
	return s.now().In(s.loc).Format("2006-01-02")
}

// Submit runs the ordered admission checks for one attempt. The first failing
// check short-circuits with its rejection and no write happens before it. On
// success exactly one record is appended, plus one roll lock if this was the
// first submission for that roll number.
func (s *Service) Submit(ctx context.Context, sub Submission) (Record, error) {
	class := strings.TrimSpace(sub.ClassName)
	roll := strings.TrimSpace(sub.RollNumber)
	name := strings.TrimSpace(sub.Name)

	if !isNumericRoll(roll) {
		observe("roll_invalid")
		return Record{}, ErrRollInvalid
	}

	cls, err := s.classes.Get(ctx, class)
	if err != nil {
		return Record{}, fmt.Errorf("load class %q: %w", class, err)
	}
	if cls == nil || !cls.IsOpen {
		observe("class_closed")
		return Record{}, ErrClassNotOpen
	}

	if sub.Code != cls.Code {
		observe("invalid_code")
		return Record{}, ErrInvalidCode
	}

	day := s.Today()

	exists, err := s.store.HasRecord(ctx, class, roll, day)
	if err != nil {
		return Record{}, fmt.Errorf("duplicate check: %w", err)
	}
	if exists {
		observe("already_marked")
		return Record{}, ErrAlreadyMarked
	}

	count, err := s.store.CountForDay(ctx, class, day)
	if err != nil {
		return Record{}, fmt.Errorf("limit check: %w", err)
	}
	if count >= cls.DailyLimit {
		observe("limit_reached")
		return Record{}, ErrLimitReached
	}

	locked, found, err := s.store.LockedName(ctx, class, roll)
	if err != nil {
		return Record{}, fmt.Errorf("roll lock lookup: %w", err)
	}
	switch {
	case found && name != "" && name != locked:
		observe("name_locked")
		return Record{}, ErrNameLocked
	case found:
		// Stored name wins over whatever the caller displayed.
		name = locked
	default:
		if name == "" {
			observe("name_required")
			return Record{}, ErrNameRequired
		}
		holder, err := s.store.LockRoll(ctx, class, roll, name)
		if err != nil {
			return Record{}, fmt.Errorf("roll lock write: %w", err)
		}
		if holder != name {
			// A concurrent first submission won the lock.
			observe("name_locked")
			return Record{}, ErrNameLocked
		}
	}

	rec := Record{
		ID:         uuid.NewString(),
		ClassName:  class,
		RollNumber: roll,
		Name:       name,
		Day:        day,
	}
	inserted, err := s.store.InsertRecord(ctx, rec, cls.DailyLimit)
	if err != nil {
		return Record{}, fmt.Errorf("append record: %w", err)
	}
	if !inserted {
		// The conditional insert refused; re-read to tell the caller which
		// guard fired.
		exists, err := s.store.HasRecord(ctx, class, roll, day)
		if err != nil {
			return Record{}, fmt.Errorf("post-insert check: %w", err)
		}
		if exists {
			observe("already_marked")
			return Record{}, ErrAlreadyMarked
		}
		observe("limit_reached")
		return Record{}, ErrLimitReached
	}

	observe("accepted")
	return rec, nil
}

// isNumericRoll accepts non-empty digit strings only. Non-numeric rolls used
// to be accepted and then silently dropped from the report matrix; rejecting
// them up front keeps the ledger and the matrix in agreement.
func isNumericRoll(roll string) bool {
	if roll == "" {
		return false
	}
	for _, r := range roll {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
