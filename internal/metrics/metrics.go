package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/fjod/go_cart/storefront"

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder holds the storefront's business instruments.
type Recorder struct {
	cartMutations      metric.Int64Counter
	cartNotices        metric.Int64Counter
	checkoutEvents     metric.Int64Counter
	submissionDuration metric.Float64Histogram
}

func New(mp metric.MeterProvider) (*Recorder, error) {
	meter := mp.Meter(meterName)

	cartMutations, err := meter.Int64Counter("storefront_cart_mutations",
		metric.WithDescription("Cart mutations by operation and outcome"))
	if err != nil {
		return nil, err
	}
	cartNotices, err := meter.Int64Counter("storefront_cart_notices",
		metric.WithDescription("Non-fatal cart notices such as quantity clamps"))
	if err != nil {
		return nil, err
	}
	checkoutEvents, err := meter.Int64Counter("storefront_checkout_operations",
		metric.WithDescription("Checkout operations by name and outcome"))
	if err != nil {
		return nil, err
	}
	submissionDuration, err := meter.Float64Histogram("storefront_checkout_submission_duration",
		metric.WithDescription("Time spent in the submission sequence"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Recorder{
		cartMutations:      cartMutations,
		cartNotices:        cartNotices,
		checkoutEvents:     checkoutEvents,
		submissionDuration: submissionDuration,
	}, nil
}

// NewNoop returns a Recorder that discards everything.
func NewNoop() *Recorder {
	r, _ := New(noop.NewMeterProvider())
	return r
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

func (r *Recorder) CartMutation(ctx context.Context, operation string, err error) {
	r.cartMutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome(err)),
	))
}

func (r *Recorder) CartNotice(ctx context.Context, notice string) {
	r.cartNotices.Add(ctx, 1, metric.WithAttributes(attribute.String("notice", notice)))
}

func (r *Recorder) CheckoutOperation(ctx context.Context, operation string, err error) {
	r.checkoutEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome(err)),
	))
}

func (r *Recorder) SubmissionDuration(ctx context.Context, d time.Duration, err error) {
	r.submissionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("outcome", outcome(err)),
	))
}
