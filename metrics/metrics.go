// Package metrics exports door activity as Prometheus metrics.
package metrics

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hausprox/controller"
	"hausprox/eventlog"
)

// Config holds the metrics endpoint settings.
type Config struct {
	Listen string `yaml:"listen"` // e.g. ":9110"; empty = disabled
}

// Recorder counts audit events. It implements eventlog.Sink.
type Recorder struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	admits   prometheus.Counter
	denials  prometheus.Counter
}

// NewRecorder creates a Recorder with its own registry. locked, if not nil,
// is sampled on every scrape.
func NewRecorder(locked func() bool) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hausprox",
			Name:      "events_total",
			Help:      "Audit events by severity and message.",
		}, []string{"severity", "message"}),
		admits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hausprox",
			Name:      "admits_total",
			Help:      "Card swipes that were let in.",
		}),
		denials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hausprox",
			Name:      "denials_total",
			Help:      "Card swipes that were refused.",
		}),
	}
	r.registry.MustRegister(r.events, r.admits, r.denials)
	if locked != nil {
		r.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "hausprox",
			Name:      "door_unlocked",
			Help:      "1 while the strike is held open.",
		}, func() float64 {
			if locked() {
				return 0
			}
			return 1
		}))
	}
	return r
}

// Write implements eventlog.Sink.
func (r *Recorder) Write(e eventlog.Event) error {
	r.events.WithLabelValues(e.Severity.String(), e.Message).Inc()
	if e.Severity != eventlog.Card {
		return nil
	}
	switch e.Message {
	case controller.MsgAdmit, controller.MsgAdmitOpenHouse:
		r.admits.Inc()
	case controller.MsgDenyDisabled, controller.MsgDenyUnregistered:
		r.denials.Inc()
	}
	return nil
}

// Handler serves the registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Server exposes /metrics.
type Server struct {
	srv *http.Server
}

// NewServer creates the endpoint. It returns nil when no address is set.
func NewServer(cfg Config, r *Recorder) *Server {
	if cfg.Listen == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	return &Server{srv: &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start serves until Close. This should be called as a goroutine.
func (s *Server) Start() {
	log.Printf("Metrics listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("Metrics server error: %v", err)
	}
}

// Close stops the server.
func (s *Server) Close() error {
	if err := s.srv.Close(); err != nil {
		return fmt.Errorf("close metrics server: %w", err)
	}
	return nil
}
