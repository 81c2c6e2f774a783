// Package health runs scheduled reachability probes against the upstream
// endpoint. Probe results feed the upstream_up gauge and the /ready
// endpoint; the /health endpoint performs its own live probe instead so a
// caller always sees current reachability.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"toolgate/pkg/telemetry/metrics"
	"toolgate/pkg/upstream"
)

// Status is the cached outcome of the most recent probe.
type Status struct {
	// Reachable reports whether the last probe succeeded.
	Reachable bool

	// LastProbe is when the last probe ran; zero before the first probe.
	LastProbe time.Time

	// LastError holds the last probe failure, nil when reachable.
	LastError error
}

// Prober schedules background upstream probes on a cron schedule.
type Prober struct {
	client    *upstream.Client
	collector *metrics.Collector
	cron      *cron.Cron

	mu     sync.RWMutex
	status Status
}

// NewProber creates a prober for the given upstream client. collector may be
// nil when metrics are disabled.
func NewProber(client *upstream.Client, collector *metrics.Collector) *Prober {
	return &Prober{
		client:    client,
		collector: collector,
		cron:      cron.New(),
	}
}

// Start registers the probe on the given cron schedule (e.g. "@every 30s")
// and runs one probe immediately so /ready has an answer from the start.
func (p *Prober) Start(schedule string) error {
	if _, err := p.cron.AddFunc(schedule, p.probe); err != nil {
		return err
	}

	p.probe()
	p.cron.Start()

	slog.Info("upstream prober started", "schedule", schedule)
	return nil
}

// Stop halts the schedule. Running probes finish on their own.
func (p *Prober) Stop() {
	p.cron.Stop()
}

// Status returns the cached result of the most recent probe.
func (p *Prober) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *Prober) probe() {
	err := p.client.HealthCheck(context.Background())

	p.mu.Lock()
	p.status = Status{
		Reachable: err == nil,
		LastProbe: time.Now(),
		LastError: err,
	}
	p.mu.Unlock()

	if p.collector != nil {
		p.collector.SetUpstreamUp(err == nil)
	}

	if err != nil {
		slog.Warn("upstream probe failed", "error", err)
	}
}
