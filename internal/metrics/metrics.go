// Package metrics exposes Prometheus collectors for the chat adapter and an
// optional /metrics listener.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the adapter's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	Events            *prometheus.CounterVec
	Operations        *prometheus.CounterVec
	JoinTimeouts      prometheus.Counter
	JoinedRooms       prometheus.Gauge
	PendingOperations prometheus.Gauge
}

// New registers the adapter collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ircmuc_events_total",
				Help: "Protocol events dispatched, by event kind",
			},
			[]string{"kind"},
		),
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ircmuc_operations_total",
				Help: "Synchronous chat operations, by operation and outcome",
			},
			[]string{"op", "result"},
		),
		JoinTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "ircmuc_join_timeouts_total",
			Help: "Join attempts that were never confirmed by the server",
		}),
		JoinedRooms: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ircmuc_joined_rooms",
			Help: "Rooms the local user is currently joined to",
		}),
		PendingOperations: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ircmuc_pending_operations",
			Help: "Operations waiting for a server reply",
		}),
	}
}

// EventDispatched counts one dispatched event.
func (m *Metrics) EventDispatched(kind string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(kind).Inc()
}

// OperationFinished counts the outcome of a synchronous operation.
func (m *Metrics) OperationFinished(op, result string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, result).Inc()
}

// JoinTimedOut counts a join that fired its timeout.
func (m *Metrics) JoinTimedOut() {
	if m == nil {
		return
	}
	m.JoinTimeouts.Inc()
}

// SetJoinedRooms records the current joined-room count.
func (m *Metrics) SetJoinedRooms(n int) {
	if m == nil {
		return
	}
	m.JoinedRooms.Set(float64(n))
}

// SetPendingOperations records the number of operations awaiting a reply.
func (m *Metrics) SetPendingOperations(n int) {
	if m == nil {
		return
	}
	m.PendingOperations.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve runs a /metrics listener on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
