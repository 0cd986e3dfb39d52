// Package metrics exposes Prometheus collectors for the reminder engine.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ykvlv/water-reminder-bot/internal/dispatcher"
	"github.com/ykvlv/water-reminder-bot/internal/registry"
	"github.com/ykvlv/water-reminder-bot/internal/scheduler"
)

// Metrics holds the collectors on a dedicated registry.
type Metrics struct {
	reg          *prometheus.Registry
	broadcasts   *prometheus.CounterVec
	deliveries   *prometheus.CounterVec
	evictions    prometheus.Counter
	sendDuration prometheus.Histogram
}

// New registers the collectors. subscribers, if non-nil, backs the subscribers gauge.
func New(subscribers func() int) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminder_broadcasts_total",
			Help: "Broadcasts started, by outcome.",
		}, []string{"status"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminder_deliveries_total",
			Help: "Per-recipient send attempts, by outcome.",
		}, []string{"status"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reminder_evictions_total",
			Help: "Subscribers removed after failed deliveries.",
		}),
		sendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reminder_send_duration_seconds",
			Help:    "Latency of a single send.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.reg.MustRegister(m.broadcasts, m.deliveries, m.evictions, m.sendDuration)
	if subscribers != nil {
		m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "reminder_subscribers",
			Help: "Current number of subscribed chats.",
		}, func() float64 { return float64(subscribers()) }))
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Sender decorates a send primitive with delivery metrics.
func (m *Metrics) Sender(next dispatcher.Sender) dispatcher.Sender {
	return &sender{next: next, m: m}
}

// Broadcaster decorates a broadcaster with batch metrics.
func (m *Metrics) Broadcaster(next scheduler.Broadcaster) scheduler.Broadcaster {
	return &broadcaster{next: next, m: m}
}

type sender struct {
	next dispatcher.Sender
	m    *Metrics
}

func (s *sender) Send(ctx context.Context, chatID registry.ChatID, text string) error {
	start := time.Now()
	err := s.next.Send(ctx, chatID, text)
	s.m.sendDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.m.deliveries.WithLabelValues("failed").Inc()
		return err
	}
	s.m.deliveries.WithLabelValues("ok").Inc()
	return nil
}

type broadcaster struct {
	next scheduler.Broadcaster
	m    *Metrics
}

func (b *broadcaster) Broadcast(ctx context.Context, message string) (dispatcher.BatchResult, error) {
	res, err := b.next.Broadcast(ctx, message)
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case res.Failed > 0:
		status = "partial"
	case res.Attempted == 0:
		status = "empty"
	}
	b.m.broadcasts.WithLabelValues(status).Inc()
	b.m.evictions.Add(float64(res.Evicted))
	return res, err
}
