package widget

import (
	"context"
	"fmt"
)

// Service is the vocabulary the HTTP layer speaks. It forwards to the
// Store and only adds input validation on create.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) GetAllWidgets(ctx context.Context) ([]Widget, error) {
	return s.store.List(ctx)
}

// CreateWidgets validates the whole batch before touching the store so a
// bad element never leaves a partially applied batch behind.
func (s *Service) CreateWidgets(ctx context.Context, ws []Widget) ([]Widget, error) {
	for i, w := range ws {
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("widget %d: %w", i, err)
		}
	}
	return s.store.UpsertAll(ctx, ws)
}

func (s *Service) GetWidgetByName(ctx context.Context, name string) (Widget, bool, error) {
	return s.store.FindByName(ctx, name)
}

func (s *Service) UpdateWidget(ctx context.Context, name string, p Patch) (Widget, bool, error) {
	return s.store.Update(ctx, name, p)
}

// DeleteWidget reports true iff a widget with that name existed.
func (s *Service) DeleteWidget(ctx context.Context, name string) (bool, error) {
	_, removed, err := s.store.DeleteByName(ctx, name)
	return removed, err
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Len(ctx)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
