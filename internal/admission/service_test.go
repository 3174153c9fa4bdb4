package admission

import (
	"context"
	"errors"
	"testing"
	"time"

	"classmark/internal/classroom"
)

type fakeClasses map[string]*classroom.Class

func (f fakeClasses) Get(_ context.Context, name string) (*classroom.Class, error) {
	return f[name], nil
}

// fakeLedger is an in-memory Store that mirrors the Postgres constraints.
type fakeLedger struct {
	records map[string]Record // class|roll|day
	locks   map[string]string // class|roll -> name
	writes  int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: map[string]Record{}, locks: map[string]string{}}
}

func (f *fakeLedger) HasRecord(_ context.Context, class, roll, day string) (bool, error) {
	_, ok := f.records[class+"|"+roll+"|"+day]
	return ok, nil
}

func (f *fakeLedger) CountForDay(_ context.Context, class, day string) (int, error) {
	count := 0
	for _, rec := range f.records {
		if rec.ClassName == class && rec.Day == day {
			count++
		}
	}
	return count, nil
}

func (f *fakeLedger) LockedName(_ context.Context, class, roll string) (string, bool, error) {
	name, ok := f.locks[class+"|"+roll]
	return name, ok, nil
}

func (f *fakeLedger) LockRoll(_ context.Context, class, roll, name string) (string, error) {
	key := class + "|" + roll
	if holder, ok := f.locks[key]; ok {
		return holder, nil
	}
	f.locks[key] = name
	f.writes++
	return name, nil
}

func (f *fakeLedger) InsertRecord(ctx context.Context, rec Record, limit int) (bool, error) {
	if exists, _ := f.HasRecord(ctx, rec.ClassName, rec.RollNumber, rec.Day); exists {
		return false, nil
	}
	if count, _ := f.CountForDay(ctx, rec.ClassName, rec.Day); count >= limit {
		return false, nil
	}
	f.records[rec.ClassName+"|"+rec.RollNumber+"|"+rec.Day] = rec
	f.writes++
	return true, nil
}

func newTestService(ledger *fakeLedger, day time.Time) *Service {
	classes := fakeClasses{
		"CS101": {Name: "CS101", Code: "1234", DailyLimit: 2, IsOpen: true},
		"CS102": {Name: "CS102", Code: "9999", DailyLimit: 5, IsOpen: false},
	}
	return NewService(classes, ledger, time.UTC, func() time.Time { return day })
}

func submit(class, roll, name, code string) Submission {
	return Submission{ClassName: class, RollNumber: roll, Name: name, Code: code}
}

func TestSubmitScenario(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	day1 := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(ledger, day1)

	// First submission: accepted, lock created.
	rec, err := svc.Submit(ctx, submit("CS101", "1", "Alice", "1234"))
	if err != nil {
		t.Fatalf("first submission: %v", err)
	}
	if rec.Day != "2025-07-01" || rec.Name != "Alice" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if ledger.locks["CS101|1"] != "Alice" {
		t.Fatalf("roll lock not created: %v", ledger.locks)
	}

	// Same day again: duplicate.
	if _, err := svc.Submit(ctx, submit("CS101", "1", "Alice", "1234")); !errors.Is(err, ErrAlreadyMarked) {
		t.Fatalf("want ErrAlreadyMarked, got %v", err)
	}

	// Second student fills the limit.
	if _, err := svc.Submit(ctx, submit("CS101", "2", "Bob", "1234")); err != nil {
		t.Fatalf("second submission: %v", err)
	}

	// Third hits the daily limit.
	if _, err := svc.Submit(ctx, submit("CS101", "3", "Cara", "1234")); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("want ErrLimitReached, got %v", err)
	}

	// Next day, wrong name for a locked roll.
	day2 := day1.AddDate(0, 0, 1)
	svc2 := newTestService(ledger, day2)
	if _, err := svc2.Submit(ctx, submit("CS101", "1", "Mallory", "1234")); !errors.Is(err, ErrNameLocked) {
		t.Fatalf("want ErrNameLocked, got %v", err)
	}
}

func TestSubmitRejectionsLeaveNoWrites(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		sub  Submission
		want error
	}{
		{"wrong code", submit("CS101", "1", "Alice", "0000"), ErrInvalidCode},
		{"closed class", submit("CS102", "1", "Alice", "9999"), ErrClassNotOpen},
		{"unknown class", submit("CS999", "1", "Alice", "1234"), ErrClassNotOpen},
		{"empty roll", submit("CS101", "", "Alice", "1234"), ErrRollInvalid},
		{"non-numeric roll", submit("CS101", "12a", "Alice", "1234"), ErrRollInvalid},
		{"missing name", submit("CS101", "1", "", "1234"), ErrNameRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ledger := newFakeLedger()
			svc := newTestService(ledger, day)
			if _, err := svc.Submit(ctx, tc.sub); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
			if ledger.writes != 0 {
				t.Fatalf("rejection performed %d writes", ledger.writes)
			}
		})
	}
}

func TestSubmitLockedNameWins(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.locks["CS101|1"] = "Alice"
	day := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(ledger, day)

	// Empty name with an existing lock: the stored name is used.
	rec, err := svc.Submit(ctx, submit("CS101", "1", "", "1234"))
	if err != nil {
		t.Fatalf("submit with locked roll: %v", err)
	}
	if rec.Name != "Alice" {
		t.Fatalf("want locked name Alice, got %q", rec.Name)
	}
}

func TestSubmitTrimsInput(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	day := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(ledger, day)

	rec, err := svc.Submit(ctx, submit("CS101", "  7  ", "  Dave ", "1234"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.RollNumber != "7" || rec.Name != "Dave" {
		t.Fatalf("input not trimmed: %+v", rec)
	}
}

func TestSubmitConditionalInsertFallback(t *testing.T) {
	// A concurrent attempt can slip in between the friendly checks and the
	// conditional insert; the service must still classify the refusal.
	ctx := context.Background()
	day := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	racy := &racingLedger{fakeLedger: newFakeLedger()}
	svc := NewService(fakeClasses{
		"CS101": {Name: "CS101", Code: "1234", DailyLimit: 2, IsOpen: true},
	}, racy, time.UTC, func() time.Time { return day })

	if _, err := svc.Submit(ctx, submit("CS101", "1", "Alice", "1234")); !errors.Is(err, ErrAlreadyMarked) {
		t.Fatalf("want ErrAlreadyMarked from insert fallback, got %v", err)
	}
}

// racingLedger simulates a concurrent duplicate landing after the duplicate
// pre-check but before the conditional insert.
type racingLedger struct {
	*fakeLedger
	raced bool
}

func (r *racingLedger) InsertRecord(ctx context.Context, rec Record, limit int) (bool, error) {
	if !r.raced {
		r.raced = true
		key := rec.ClassName + "|" + rec.RollNumber + "|" + rec.Day
		r.records[key] = Record{ClassName: rec.ClassName, RollNumber: rec.RollNumber, Day: rec.Day}
	}
	return r.fakeLedger.InsertRecord(ctx, rec, limit)
}

func TestTodayUsesLocation(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2025-07-01 23:00 UTC is already 2025-07-02 in IST.
	at := time.Date(2025, 7, 1, 23, 0, 0, 0, time.UTC)
	svc := NewService(fakeClasses{}, newFakeLedger(), ist, func() time.Time { return at })
	if got := svc.Today(); got != "2025-07-02" {
		t.Fatalf("want 2025-07-02, got %s", got)
	}
}
