package metrics

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements ports.Metrics with labeler counters.
type Prometheus struct {
	EventsTotal       prometheus.Counter
	ResetsTotal       prometheus.Counter
	SlidesTotal       prometheus.Counter
	LabelsTotal       prometheus.Counter
	EmitFailuresTotal prometheus.Counter
}

// New registers the labeler counters on reg, tagged with the input topic.
func New(reg prometheus.Registerer, topic string) *Prometheus {
	labels := prometheus.Labels{"topic": topic}
	m := &Prometheus{
		EventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labeler_events_total", Help: "Quote events ingested", ConstLabels: labels,
		}),
		ResetsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labeler_window_resets_total", Help: "Windows discarded at a session or day boundary", ConstLabels: labels,
		}),
		SlidesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labeler_window_slides_total", Help: "Window origin advances", ConstLabels: labels,
		}),
		LabelsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labeler_labels_total", Help: "Labels persisted and published", ConstLabels: labels,
		}),
		EmitFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labeler_emit_failures_total", Help: "Failed persist or publish attempts", ConstLabels: labels,
		}),
	}
	reg.MustRegister(m.EventsTotal, m.ResetsTotal, m.SlidesTotal, m.LabelsTotal, m.EmitFailuresTotal)
	return m
}

// EventIngested counts one quote event fed to the window.
func (m *Prometheus) EventIngested() { m.EventsTotal.Inc() }

// WindowReset counts one window discarded at a session or day boundary.
func (m *Prometheus) WindowReset() { m.ResetsTotal.Inc() }

// WindowSlid counts one origin advance.
func (m *Prometheus) WindowSlid() { m.SlidesTotal.Inc() }

// LabelEmitted counts one label published and stored.
func (m *Prometheus) LabelEmitted() { m.LabelsTotal.Inc() }

// EmitFailed counts one failed publish or store attempt.
func (m *Prometheus) EmitFailed() { m.EmitFailuresTotal.Inc() }

// Serve binds addr and exposes /metrics for gatherer in the background.
// Bind errors are returned; later serve errors are logged.
func Serve(addr string, gatherer prometheus.Gatherer) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics.Serve: listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: ln.Addr().String(), Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "addr", srv.Addr, "err", err)
		}
	}()
	return srv, nil
}
