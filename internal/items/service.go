package items

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// Service enforces write invariants before anything reaches the Store.
type Service struct {
	store    Store
	validate *validatorv10.Validate
	notifier Notifier
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier publishes every persisted change to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the logger used for notifier failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService returns a Service backed by store. v must be built by validation.New
// so the notblank rule and the Patch struct rule are registered.
func NewService(store Store, v *validatorv10.Validate, opts ...Option) *Service {
	s := &Service{
		store:    store,
		validate: v,
		notifier: nopNotifier{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every item matching f, in Store order. Never nil.
func (s *Service) List(ctx context.Context, f Filter) ([]Item, error) {
	list, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Item{}
	}
	return list, nil
}

// Get returns the item or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	return s.store.Get(ctx, id)
}

// Create validates in and inserts it. Name and unit are stored trimmed.
func (s *Service) Create(ctx context.Context, in NewItem) (Item, error) {
	if err := s.validate.Struct(in); err != nil {
		return Item{}, toValidationError(err)
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.TrimSpace(in.Unit)

	it, err := s.store.Insert(ctx, in)
	if err != nil {
		return Item{}, err
	}
	s.notify(ctx, ActionCreated, it)
	return it, nil
}

// Update checks existence first, then validates only the fields present in p,
// then writes them. An empty patch only refreshes updated_at.
func (s *Service) Update(ctx context.Context, id int64, p Patch) (Item, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return Item{}, err
	}
	if err := s.validate.Struct(p); err != nil {
		return Item{}, toValidationError(err)
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
	}
	if p.Unit != nil {
		unit := strings.TrimSpace(*p.Unit)
		p.Unit = &unit
	}

	it, err := s.store.Update(ctx, id, p)
	if err != nil {
		return Item{}, err
	}
	s.notify(ctx, ActionUpdated, it)
	return it, nil
}

// Delete reports whether an item was removed. A missing id is not an error.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.notify(ctx, ActionDeleted, Item{ID: id})
	}
	return deleted, nil
}

// TogglePurchased flips the purchased flag. Only purchased changes, so the
// name/quantity/unit rules never apply here.
func (s *Service) TogglePurchased(ctx context.Context, id int64) (Item, error) {
	it, err := s.store.TogglePurchased(ctx, id)
	if err != nil {
		return Item{}, err
	}
	s.notify(ctx, ActionToggled, it)
	return it, nil
}

// Stats counts items by purchase state.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	total, err := s.store.Count(ctx, Filter{})
	if err != nil {
		return Stats{}, err
	}
	bought := true
	purchased, err := s.store.Count(ctx, Filter{Purchased: &bought})
	if err != nil {
		return Stats{}, err
	}
	return Stats{Total: total, Remaining: total - purchased, Purchased: purchased}, nil
}

func (s *Service) notify(ctx context.Context, action Action, it Item) {
	if err := s.notifier.Notify(ctx, Change{Action: action, Item: it}); err != nil {
		s.logger.WarnContext(ctx, "item change notice failed",
			"action", string(action),
			"item_id", it.ID,
			"error", err)
	}
}

// toValidationError reports the first failing field.
func toValidationError(err error) error {
	ves, ok := err.(validatorv10.ValidationErrors)
	if !ok || len(ves) == 0 {
		return fmt.Errorf("validate: %w", err)
	}
	fe := ves[0]
	return &ValidationError{Field: fe.Field(), Message: ruleMessage(fe.Tag(), fe.Param())}
}

func ruleMessage(tag, param string) string {
	switch tag {
	case "notblank", "required":
		return "must not be empty"
	case "gt":
		return "must be greater than " + param
	default:
		return "is invalid"
	}
}
