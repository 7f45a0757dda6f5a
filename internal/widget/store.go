package widget

import "context"

// Store owns the widget collection and keeps names unique.
type Store interface {
	List(ctx context.Context) ([]Widget, error)
	FindByName(ctx context.Context, name string) (Widget, bool, error)

	// Upsert replaces any widget with the same name wholesale; the saved
	// widget moves to the end of the listing.
	Upsert(ctx context.Context, w Widget) (Widget, error)
	// UpsertAll upserts in input order and returns the input unchanged.
	UpsertAll(ctx context.Context, ws []Widget) ([]Widget, error)

	// DeleteByName returns the remaining collection and whether a widget
	// with that name was removed.
	DeleteByName(ctx context.Context, name string) ([]Widget, bool, error)
	Update(ctx context.Context, name string, p Patch) (Widget, bool, error)

	Len(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

var (
	_ Store = (*MemStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
