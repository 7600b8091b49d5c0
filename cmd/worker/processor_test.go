package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	awslambda "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// --- mock implementations ---

type mockCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, in)
	if m.err != nil {
		return nil, m.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func newTestProcessor(cw *mockCloudWatch) *Processor {
	p := NewProcessor(cw, "ShopList", slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.nowFunc = func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func batch(bodies ...string) awslambda.SQSEvent {
	ev := awslambda.SQSEvent{}
	for _, b := range bodies {
		ev.Records = append(ev.Records, awslambda.SQSMessage{Body: b})
	}
	return ev
}

// --- test cases ---

func TestProcessor_AggregatesPerAction(t *testing.T) {
	cw := &mockCloudWatch{}
	p := newTestProcessor(cw)

	err := p.Handle(context.Background(), batch(
		`{"action":"created","item_id":1}`,
		`{"action":"toggled","item_id":1,"purchased":true}`,
		`{"action":"created","item_id":2}`,
		`{"action":"deleted","item_id":1}`,
	))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if len(cw.inputs) != 1 {
		t.Fatalf("expected one PutMetricData call, got %d", len(cw.inputs))
	}
	in := cw.inputs[0]
	if *in.Namespace != "ShopList" {
		t.Fatalf("unexpected namespace %s", *in.Namespace)
	}

	got := map[string]float64{}
	for _, d := range in.MetricData {
		if *d.MetricName != metricName || d.Unit != cwtypes.StandardUnitCount {
			t.Fatalf("unexpected datum %+v", d)
		}
		if len(d.Dimensions) != 1 || *d.Dimensions[0].Name != "Action" {
			t.Fatalf("unexpected dimensions %+v", d.Dimensions)
		}
		got[*d.Dimensions[0].Value] = *d.Value
	}
	want := map[string]float64{"created": 2, "toggled": 1, "deleted": 1}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("action %s: expected %v, got %v", k, v, got[k])
		}
	}
}

func TestProcessor_MalformedBodyFailsBatch(t *testing.T) {
	for _, body := range []string{`not json`, `{"item_id":3}`, `{"action":"created"}`} {
		cw := &mockCloudWatch{}
		p := newTestProcessor(cw)

		err := p.Handle(context.Background(), batch(`{"action":"created","item_id":1}`, body))
		if err == nil {
			t.Fatalf("expected error for body %q", body)
		}
		if len(cw.inputs) != 0 {
			t.Fatalf("no metrics may be published for a failed batch")
		}
	}
}

func TestProcessor_EmptyBatch(t *testing.T) {
	cw := &mockCloudWatch{}
	if err := newTestProcessor(cw).Handle(context.Background(), batch()); err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if len(cw.inputs) != 0 {
		t.Fatalf("expected no metrics call for an empty batch")
	}
}

func TestProcessor_PutMetricError(t *testing.T) {
	cw := &mockCloudWatch{err: errors.New("throttled")}
	err := newTestProcessor(cw).Handle(context.Background(), batch(`{"action":"updated","item_id":4}`))
	if !errors.Is(err, cw.err) {
		t.Fatalf("expected wrapped cloudwatch error, got %v", err)
	}
}
