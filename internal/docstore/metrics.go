package docstore

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// storeOps counts store calls by collection, operation and status code.
	storeOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "levelup",
			Subsystem: "docstore",
			Name:      "operations_total",
			Help:      "Total number of document store operations.",
		},
		[]string{"collection", "op", "status"},
	)

	// storeCharge accumulates request units by collection and operation.
	storeCharge = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "levelup",
			Subsystem: "docstore",
			Name:      "request_units_total",
			Help:      "Request units charged by the document store.",
		},
		[]string{"collection", "op"},
	)

	storeLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "levelup",
			Subsystem: "docstore",
			Name:      "operation_duration_seconds",
			Help:      "Duration of document store operations in seconds.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"collection", "op"},
	)
)

func init() {
	prometheus.MustRegister(storeOps, storeCharge, storeLat)
}

type instrumented struct {
	next Container
}

// WithMetrics records counts, request units and latency for every call.
func WithMetrics(c Container) Container { return &instrumented{next: c} }

func (m *instrumented) observe(op string, start time.Time, charge float64, err error) {
	name := m.next.Name()
	storeOps.WithLabelValues(name, op, strconv.Itoa(StatusCode(err))).Inc()
	storeLat.WithLabelValues(name, op).Observe(time.Since(start).Seconds())
	if charge > 0 {
		storeCharge.WithLabelValues(name, op).Add(charge)
	}
}

func (m *instrumented) Name() string { return m.next.Name() }

func (m *instrumented) Read(ctx context.Context, id, pk string) (Response, error) {
	start := time.Now()
	resp, err := m.next.Read(ctx, id, pk)
	m.observe("read", start, resp.Charge, err)
	return resp, err
}

func (m *instrumented) Create(ctx context.Context, item Item) (Response, error) {
	start := time.Now()
	resp, err := m.next.Create(ctx, item)
	m.observe("create", start, resp.Charge, err)
	return resp, err
}

func (m *instrumented) Replace(ctx context.Context, item Item, ifMatch string) (Response, error) {
	start := time.Now()
	resp, err := m.next.Replace(ctx, item, ifMatch)
	m.observe("replace", start, resp.Charge, err)
	return resp, err
}

func (m *instrumented) Upsert(ctx context.Context, item Item) (Response, error) {
	start := time.Now()
	resp, err := m.next.Upsert(ctx, item)
	m.observe("upsert", start, resp.Charge, err)
	return resp, err
}

func (m *instrumented) Delete(ctx context.Context, id, pk string) (float64, error) {
	start := time.Now()
	charge, err := m.next.Delete(ctx, id, pk)
	m.observe("delete", start, charge, err)
	return charge, err
}

func (m *instrumented) Query(ctx context.Context, req QueryRequest) (Page, error) {
	start := time.Now()
	page, err := m.next.Query(ctx, req)
	m.observe("query", start, page.Charge, err)
	return page, err
}

func (m *instrumented) Count(ctx context.Context, req QueryRequest) (int, float64, error) {
	start := time.Now()
	n, charge, err := m.next.Count(ctx, req)
	m.observe("count", start, charge, err)
	return n, charge, err
}
