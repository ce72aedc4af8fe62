// Package observability emits operational metrics to CloudWatch.
package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics publishes counters to CloudWatch. A nil *Metrics is a valid no-op
// recorder, so callers never need to branch on whether metrics are enabled.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
}

// NewMetrics creates a metrics recorder for the given namespace
func NewMetrics(namespace string, client *cloudwatch.Client) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
	}
}

// Metric names emitted by the deletion cascade and the outbox relay.
const (
	MetricVerticesDeleted    = "VerticesDeleted"
	MetricEdgesDeleted       = "EdgesDeleted"
	MetricPropertiesDeleted  = "PropertiesDeleted"
	MetricEventsPublished    = "EventsPublished"
	MetricEventsFailed       = "EventsFailed"
	MetricRelayBatchDuration = "RelayBatchDuration"
)

// Count emits a count metric. Delivery is best effort: metric failures are
// swallowed so they can never fail the operation being measured.
func (m *Metrics) Count(ctx context.Context, name string, value float64, dimensions map[string]string) {
	if m == nil || m.client == nil {
		return
	}

	dims := make([]types.Dimension, 0, len(dimensions))
	for k, v := range dimensions {
		dims = append(dims, types.Dimension{
			Name:  aws.String(k),
			Value: aws.String(v),
		})
	}

	// ignore errors: metrics must not affect the request path
	_, _ = m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(value),
				Unit:       types.StandardUnitCount,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: dims,
			},
		},
	})
}

// Increment emits a count of one
func (m *Metrics) Increment(ctx context.Context, name string, dimensions map[string]string) {
	m.Count(ctx, name, 1, dimensions)
}

// Duration emits a latency metric in milliseconds
func (m *Metrics) Duration(ctx context.Context, name string, elapsed time.Duration, dimensions map[string]string) {
	if m == nil || m.client == nil {
		return
	}

	dims := make([]types.Dimension, 0, len(dimensions))
	for k, v := range dimensions {
		dims = append(dims, types.Dimension{
			Name:  aws.String(k),
			Value: aws.String(v),
		})
	}

	_, _ = m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(float64(elapsed.Milliseconds())),
				Unit:       types.StandardUnitMilliseconds,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: dims,
			},
		},
	})
}
