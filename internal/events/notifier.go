package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/imrishuroy/go-shoplist/internal/aws"
	"github.com/imrishuroy/go-shoplist/internal/items"
)

// SQSNotifier publishes item changes to an SQS queue.
type SQSNotifier struct {
	publisher *aws.Publisher
	nowFunc   func() time.Time
}

// NewSQSNotifier returns a notifier sending through publisher.
func NewSQSNotifier(publisher *aws.Publisher) *SQSNotifier {
	return &SQSNotifier{
		publisher: publisher,
		nowFunc:   func() time.Time { return time.Now().UTC() },
	}
}

// Notify implements items.Notifier.
func (n *SQSNotifier) Notify(ctx context.Context, c items.Change) error {
	ev := Event{
		Action:        c.Action,
		ItemID:        c.Item.ID,
		Purchased:     c.Item.Purchased,
		CorrelationID: CorrelationID(ctx),
		OccurredAt:    n.nowFunc(),
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	attrs := map[string]string{
		"action":         string(ev.Action),
		"item_id":        strconv.FormatInt(ev.ItemID, 10),
		"correlation_id": ev.CorrelationID,
	}
	if err := n.publisher.SendMessage(ctx, string(body), attrs); err != nil {
		return fmt.Errorf("notify %s item %d: %w", ev.Action, ev.ItemID, err)
	}
	return nil
}
