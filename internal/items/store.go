package items

import "context"

// Store persists items. It is the only writer of item state.
//
// Implementations report absence with ErrNotFound and must never reuse an id.
// List orders unfiltered results unpurchased first, then newest first; filtered
// results are newest first.
type Store interface {
	Insert(ctx context.Context, in NewItem) (Item, error)
	Get(ctx context.Context, id int64) (Item, error)
	List(ctx context.Context, f Filter) ([]Item, error)
	Count(ctx context.Context, f Filter) (int, error)
	// Update applies only the non-nil fields of p and always refreshes updated_at.
	Update(ctx context.Context, id int64, p Patch) (Item, error)
	// TogglePurchased flips purchased in a single atomic write.
	TogglePurchased(ctx context.Context, id int64) (Item, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Notifier receives persisted changes. Errors are logged by the Service, never returned to callers.
type Notifier interface {
	Notify(ctx context.Context, c Change) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Change) error { return nil }
