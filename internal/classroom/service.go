package classroom

import (
	"context"
	"fmt"
	"strings"
)

// Store is the persistence surface the service needs. *Repository implements it.
type Store interface {
	Create(ctx context.Context, cls Class) error
	Get(ctx context.Context, name string) (*Class, error)
	List(ctx context.Context) ([]Class, error)
	ListOpen(ctx context.Context) ([]Class, error)
	Open(ctx context.Context, name string) error
	Close(ctx context.Context, name string) error
	UpdateSettings(ctx context.Context, name, code string, limit int) error
	Delete(ctx context.Context, name string) error
}

// Service validates registry mutations before handing them to the store.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create registers a new class with default code and limit, closed.
func (s *Service) Create(ctx context.Context, name string) (Class, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Class{}, fmt.Errorf("%w: class name required", ErrInvalidInput)
	}
	cls := Class{Name: name, Code: DefaultCode, DailyLimit: DefaultLimit}
	if err := s.store.Create(ctx, cls); err != nil {
		return Class{}, err
	}
	return cls, nil
}

// Get returns one class. ErrClassNotFound when absent.
func (s *Service) Get(ctx context.Context, name string) (Class, error) {
	cls, err := s.store.Get(ctx, name)
	if err != nil {
		return Class{}, err
	}
	if cls == nil {
		return Class{}, ErrClassNotFound
	}
	return *cls, nil
}

// List returns all classes.
func (s *Service) List(ctx context.Context) ([]Class, error) {
	return s.store.List(ctx)
}

// ListOpen returns the classes students may currently submit to.
func (s *Service) ListOpen(ctx context.Context) ([]Class, error) {
	return s.store.ListOpen(ctx)
}

// SetOpen opens or closes a class. Opening fails with ErrAnotherClassOpen
// while any other class is open; closing is unconditional.
func (s *Service) SetOpen(ctx context.Context, name string, open bool) error {
	if open {
		return s.store.Open(ctx, name)
	}
	return s.store.Close(ctx, name)
}

// UpdateSettings overwrites the attendance code and daily limit.
func (s *Service) UpdateSettings(ctx context.Context, name, code string, limit int) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: code required", ErrInvalidInput)
	}
	if limit < 1 {
		return fmt.Errorf("%w: daily limit must be at least 1", ErrInvalidInput)
	}
	return s.store.UpdateSettings(ctx, name, code, limit)
}

// Delete removes a class and all attendance and roll-lock rows under it.
func (s *Service) Delete(ctx context.Context, name string) error {
	return s.store.Delete(ctx, name)
}
