package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	awslambda "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/imrishuroy/go-shoplist/internal/aws"
	"github.com/imrishuroy/go-shoplist/internal/events"
)

const metricName = "ItemEvents"

// Processor turns batches of item change notices into CloudWatch metrics.
type Processor struct {
	cw        aws.CloudWatchAPI
	namespace string
	logger    *slog.Logger
	nowFunc   func() time.Time
}

// NewProcessor creates a worker processor publishing under namespace.
func NewProcessor(cw aws.CloudWatchAPI, namespace string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		cw:        cw,
		namespace: namespace,
		logger:    logger,
		nowFunc:   func() time.Time { return time.Now().UTC() },
	}
}

// Handle decodes every record of the batch, then publishes one count per
// action. A malformed record fails the whole batch so Lambda retries it.
func (p *Processor) Handle(ctx context.Context, ev awslambda.SQSEvent) error {
	p.logger.InfoContext(ctx, "[worker] received batch", "records", len(ev.Records))

	counts := map[string]int{}
	for _, rec := range ev.Records {
		msg, err := decodeEvent(rec)
		if err != nil {
			p.logger.ErrorContext(ctx, "[worker] bad message", "message_id", rec.MessageId, "error", err)
			return err
		}
		p.logger.DebugContext(ctx, "[worker] item event",
			"action", string(msg.Action),
			"item_id", msg.ItemID,
			"corr", msg.CorrelationID)
		counts[string(msg.Action)]++
	}
	if len(counts) == 0 {
		return nil
	}

	actions := make([]string, 0, len(counts))
	for a := range counts {
		actions = append(actions, a)
	}
	sort.Strings(actions)

	now := p.nowFunc()
	data := make([]cwtypes.MetricDatum, 0, len(actions))
	for _, a := range actions {
		data = append(data, cwtypes.MetricDatum{
			MetricName: awsString(metricName),
			Dimensions: []cwtypes.Dimension{{Name: awsString("Action"), Value: awsString(a)}},
			Value:      awsFloat64(float64(counts[a])),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  &now,
		})
	}

	_, err := p.cw.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  awsString(p.namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	p.logger.InfoContext(ctx, "[worker] published metrics", "actions", len(actions))
	return nil
}

func decodeEvent(rec awslambda.SQSMessage) (events.Event, error) {
	var msg events.Event
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return events.Event{}, fmt.Errorf("invalid message body: %w", err)
	}
	if msg.Action == "" || msg.ItemID <= 0 {
		return events.Event{}, fmt.Errorf("invalid message body: missing action or item_id")
	}
	return msg, nil
}

func awsString(s string) *string     { return &s }
func awsFloat64(f float64) *float64 { return &f }
