package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Metrics are the driver's diagnostic counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Frames   *prometheus.CounterVec // labels: type
	Parse    *prometheus.CounterVec // labels: result
	Publish  *prometheus.CounterVec // labels: result
	Commands *prometheus.CounterVec // labels: mnemonic, result
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vn310_frames_total",
			Help: "Frames received from the sensor by classification.",
		}, []string{"type"}),
		Parse: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vn310_parse_total",
			Help: "Pose decode attempts by result.",
		}, []string{"result"}),
		Publish: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vn310_pose_publish_total",
			Help: "Pose messages handed to the router by result.",
		}, []string{"result"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vn310_commands_total",
			Help: "Commands transmitted to the sensor.",
		}, []string{"mnemonic", "result"}),
	}
	reg.MustRegister(m.Frames, m.Parse, m.Publish, m.Commands)
	return m
}

func (m *Metrics) ObserveFrame(kind string) {
	if m == nil {
		return
	}
	m.Frames.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveParse(result string) {
	if m == nil {
		return
	}
	m.Parse.WithLabelValues(result).Inc()
}

func (m *Metrics) ObservePublish(result string) {
	if m == nil {
		return
	}
	m.Publish.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveCommand(mnemonic string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Commands.WithLabelValues(mnemonic, result).Inc()
}
