package events

import (
	"context"
	"time"

	"github.com/imrishuroy/go-shoplist/internal/items"
)

// Event is the item change notice sent API -> SQS -> worker.
type Event struct {
	Action        items.Action `json:"action"`
	ItemID        int64        `json:"item_id"`
	Purchased     bool         `json:"purchased"`
	CorrelationID string       `json:"correlation_id,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at"`
}

type correlationKey struct{}

// WithCorrelationID stores the request id carried into notices.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id set by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
