// Package metrics exposes Prometheus collectors for contract calls and HTTP
// traffic.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

const namespace = "near_poll"

// Metrics holds the collectors and the registry they are served from.
type Metrics struct {
	Registry *prometheus.Registry

	contractCalls    *prometheus.CounterVec
	contractDuration *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		contractCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "contract",
				Name:      "calls_total",
				Help:      "Total number of contract calls.",
			},
			[]string{"method", "kind", "outcome"},
		),
		contractDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "contract",
				Name:      "call_duration_seconds",
				Help:      "Duration of contract calls.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"method", "kind"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
	}

	m.Registry.MustRegister(
		m.contractCalls,
		m.contractDuration,
		m.httpRequests,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// RecordContractCall counts one call. kind is "view" or "change".
func (m *Metrics) RecordContractCall(method, kind string, err error, duration time.Duration) {
	m.contractCalls.WithLabelValues(method, kind, outcome(err)).Inc()
	m.contractDuration.WithLabelValues(method, kind).Observe(duration.Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrChangeUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrCallFailed):
		return "failed"
	default:
		return "error"
	}
}

type instrumentedContract struct {
	next    ports.ContractClient
	metrics *Metrics
}

// InstrumentContract records every call made through next.
func InstrumentContract(next ports.ContractClient, m *Metrics) ports.ContractClient {
	return &instrumentedContract{next: next, metrics: m}
}

func (c *instrumentedContract) View(ctx context.Context, method string, args any) (json.RawMessage, error) {
	start := time.Now()
	raw, err := c.next.View(ctx, method, args)
	c.metrics.RecordContractCall(method, "view", err, time.Since(start))
	return raw, err
}

func (c *instrumentedContract) Call(ctx context.Context, call ports.ChangeCall) (json.RawMessage, error) {
	start := time.Now()
	raw, err := c.next.Call(ctx, call)
	c.metrics.RecordContractCall(call.Method, "change", err, time.Since(start))
	return raw, err
}

// InstrumentHandler counts requests by their chi route pattern.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(strings.ToUpper(r.Method), route, strconv.Itoa(status)).Inc()
	})
}
