package admission

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository persists the attendance ledger and roll locks in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// HasRecord reports whether a record exists for (class, roll, day).
func (r *Repository) HasRecord(ctx context.Context, class, roll, day string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM attendance
			WHERE class_name = $1 AND roll_number = $2 AND day = $3::date
		)
	`, class, roll, day).Scan(&exists)
	return exists, err
}

// CountForDay returns the number of records for (class, day).
func (r *Repository) CountForDay(ctx context.Context, class, day string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance WHERE class_name = $1 AND day = $2::date
	`, class, day).Scan(&count)
	return count, err
}

// LockedName returns the name bound to (class, roll), if any.
func (r *Repository) LockedName(ctx context.Context, class, roll string) (string, bool, error) {
	var name string
	err := r.db.QueryRowContext(ctx, `
		SELECT name FROM roll_map WHERE class_name = $1 AND roll_number = $2
	`, class, roll).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

// LockRoll binds name to (class, roll) first-write-wins. The composite primary
// key makes the insert a no-op when a binding already exists, so whichever
// attempt gets there first holds the lock forever.
func (r *Repository) LockRoll(ctx context.Context, class, roll, name string) (string, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO roll_map (class_name, roll_number, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (class_name, roll_number) DO NOTHING
	`, class, roll, name)
	if err != nil {
		return "", err
	}
	holder, _, err := r.LockedName(ctx, class, roll)
	return holder, err
}

// InsertRecord appends rec in a single conditional statement: the unique
// constraint on (class_name, roll_number, day) swallows duplicates atomically
// and the WHERE clause refuses the insert once the day count reaches limit.
func (r *Repository) InsertRecord(ctx context.Context, rec Record, limit int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (id, class_name, roll_number, name, day)
		SELECT $1, $2, $3, $4, $5::date
		WHERE (SELECT COUNT(*) FROM attendance WHERE class_name = $2 AND day = $5::date) < $6
		ON CONFLICT (class_name, roll_number, day) DO NOTHING
	`, rec.ID, rec.ClassName, rec.RollNumber, rec.Name, rec.Day, limit)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordsForClass returns the full ledger for a class, oldest day first.
func (r *Repository) RecordsForClass(ctx context.Context, class string) ([]Record, error) {
	return r.records(ctx, `
		SELECT id, class_name, roll_number, name, day, created_at
		FROM attendance WHERE class_name = $1
		ORDER BY day, roll_number
	`, class)
}

// RecordsForStudent returns one student's records in a class, oldest day first.
func (r *Repository) RecordsForStudent(ctx context.Context, class, roll string) ([]Record, error) {
	return r.records(ctx, `
		SELECT id, class_name, roll_number, name, day, created_at
		FROM attendance WHERE class_name = $1 AND roll_number = $2
		ORDER BY day
	`, class, roll)
}

func (r *Repository) records(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		var day time.Time
		if err := rows.Scan(&rec.ID, &rec.ClassName, &rec.RollNumber, &rec.Name, &day, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Day = day.Format("2006-01-02")
		res = append(res, rec)
	}
	return res, rows.Err()
}
