package classroom

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository persists classroom settings in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new class row. Returns ErrClassExists when the name is taken.
func (r *Repository) Create(ctx context.Context, cls Class) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO classroom_settings (class_name, code, daily_limit, is_open)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (class_name) DO NOTHING
	`, cls.Name, cls.Code, cls.DailyLimit)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrClassExists
	}
	return nil
}

// Get returns a single class, or nil when it does not exist.
func (r *Repository) Get(ctx context.Context, name string) (*Class, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT class_name, code, daily_limit, is_open, created_at
		FROM classroom_settings WHERE class_name = $1
	`, name)
	var cls Class
	if err := row.Scan(&cls.Name, &cls.Code, &cls.DailyLimit, &cls.IsOpen, &cls.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &cls, nil
}

// List returns all classes ordered by name.
func (r *Repository) List(ctx context.Context) ([]Class, error) {
	return r.list(ctx, `
		SELECT class_name, code, daily_limit, is_open, created_at
		FROM classroom_settings ORDER BY class_name
	`)
}

// ListOpen returns only classes currently accepting submissions.
func (r *Repository) ListOpen(ctx context.Context) ([]Class, error) {
	return r.list(ctx, `
		SELECT class_name, code, daily_limit, is_open, created_at
		FROM classroom_settings WHERE is_open ORDER BY class_name
	`)
}

func (r *Repository) list(ctx context.Context, query string) ([]Class, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Class
	for rows.Next() {
		var cls Class
		if err := rows.Scan(&cls.Name, &cls.Code, &cls.DailyLimit, &cls.IsOpen, &cls.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, cls)
	}
	return res, rows.Err()
}

// Open marks a class as accepting submissions. The update only matches when no
// other class is open, so the one-open-class invariant holds without a
// separate advisory read.
func (r *Repository) Open(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE classroom_settings SET is_open = TRUE
		WHERE class_name = $1
		  AND NOT EXISTS (
		      SELECT 1 FROM classroom_settings WHERE is_open AND class_name <> $1
		  )
	`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		cls, err := r.Get(ctx, name)
		if err != nil {
			return err
		}
		if cls == nil {
			return ErrClassNotFound
		}
		return ErrAnotherClassOpen
	}
	return nil
}

// Close marks a class as closed. Unconditional.
func (r *Repository) Close(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE classroom_settings SET is_open = FALSE WHERE class_name = $1
	`, name)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateSettings overwrites code and daily limit for a class.
func (r *Repository) UpdateSettings(ctx context.Context, name, code string, limit int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE classroom_settings SET code = $2, daily_limit = $3 WHERE class_name = $1
	`, name, code, limit)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes a class and everything keyed to it, child rows first so a
// failure mid-way never leaves orphaned references.
func (r *Repository) Delete(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE class_name = $1`, name); err != nil {
		return fmt.Errorf("delete attendance rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM roll_map WHERE class_name = $1`, name); err != nil {
		return fmt.Errorf("delete roll map rows: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM classroom_settings WHERE class_name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete class row: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrClassNotFound
	}
	return nil
}
