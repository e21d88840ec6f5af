// Package metrics counts reconciliation outcomes for Prometheus.
//
// A run is a short-lived process, so metrics are not served over HTTP.
// They are written once at exit in the text exposition format, ready for
// the node_exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/newtron-network/vlanshift/pkg/changeset"
)

// Recorder holds the run's collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	decisions      *prometheus.CounterVec
	devices        *prometheus.CounterVec
	commands       prometheus.Counter
	deviceDuration prometheus.Histogram
	lastRun        prometheus.Gauge
}

// New creates a Recorder with every collector registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vlanshift_decisions_total",
			Help: "Interface decisions by outcome and VLAN kind.",
		}, []string{"kind", "vlan"}),
		devices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vlanshift_devices_total",
			Help: "Devices processed by result.",
		}, []string{"result"}),
		commands: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vlanshift_commands_total",
			Help: "Configuration commands generated.",
		}),
		deviceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vlanshift_device_duration_seconds",
			Help:    "Time spent reconciling one device.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vlanshift_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
	}
	r.registry.MustRegister(r.decisions, r.devices, r.commands, r.deviceDuration, r.lastRun)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveDevice records one device outcome.
func (r *Recorder) ObserveDevice(decisions []changeset.Decision, commands int, d time.Duration, err error) {
	for _, dec := range decisions {
		vlan := string(dec.VLAN)
		if vlan == "" {
			vlan = "none"
		}
		r.decisions.WithLabelValues(string(dec.Kind), vlan).Inc()
	}
	r.commands.Add(float64(commands))
	r.deviceDuration.Observe(d.Seconds())
	if err != nil {
		r.devices.WithLabelValues("failed").Inc()
		return
	}
	r.devices.WithLabelValues("ok").Inc()
}

// Finish stamps the end of the run.
func (r *Recorder) Finish(t time.Time) {
	r.lastRun.Set(float64(t.Unix()))
}

// WriteFile writes the registry to path atomically.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
