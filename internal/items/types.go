package items

import "time"

// Item is a single shopping-list entry as persisted by a Store.
type Item struct {
	ID        int64     `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Quantity  int       `json:"quantity" yaml:"quantity"`
	Unit      string    `json:"unit" yaml:"unit"`
	Purchased bool      `json:"purchased" yaml:"purchased"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewItem is the payload for creating an item. Purchased defaults to false when nil.
type NewItem struct {
	Name      string `json:"name" validate:"notblank"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Unit      string `json:"unit" validate:"notblank"`
	Purchased *bool  `json:"purchased,omitempty"`
}

// Patch is a partial update: nil fields are left untouched.
// Field rules are enforced by a struct-level validation (see internal/validation).
type Patch struct {
	Name      *string `json:"name,omitempty"`
	Quantity  *int    `json:"quantity,omitempty"`
	Unit      *string `json:"unit,omitempty"`
	Purchased *bool   `json:"purchased,omitempty"`
}

// Empty reports whether the patch carries no field at all.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Quantity == nil && p.Unit == nil && p.Purchased == nil
}

// Filter narrows List and Count. A nil Purchased matches every item.
type Filter struct {
	Purchased *bool
}

// Matches reports whether it passes the filter.
func (f Filter) Matches(it Item) bool {
	return f.Purchased == nil || *f.Purchased == it.Purchased
}

// Stats summarises the list.
type Stats struct {
	Total     int `json:"total"`
	Remaining int `json:"remaining"`
	Purchased int `json:"purchased"`
}

// Action names a successful mutation.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionToggled Action = "toggled"
	ActionDeleted Action = "deleted"
)

// Change describes a mutation that has been persisted.
type Change struct {
	Action Action
	Item   Item
}
