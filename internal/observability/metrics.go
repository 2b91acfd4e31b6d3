package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsMu         sync.Mutex
	activationTotal   *prometheus.CounterVec
	admittedTotal     prometheus.Counter
	refusedTotal      *prometheus.CounterVec
	preemptedTotal    prometheus.Counter
	activeSlicesGauge prometheus.Gauge
	linkUtilGauge     *prometheus.GaugeVec
	latencyHist       *prometheus.HistogramVec
	registered        bool
)

func ensureMetrics() {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if registered {
		return
	}

	activationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netslice_activation_attempts_total",
		Help: "Slice activation attempts, labeled by slice name.",
	}, []string{"slice"})
	admittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netslice_admitted_total",
		Help: "Slice activations admitted.",
	})
	refusedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netslice_refused_total",
		Help: "Slice activations refused, labeled by reason.",
	}, []string{"reason"})
	preemptedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netslice_preempted_total",
		Help: "Active slices deactivated by preemption.",
	})
	activeSlicesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netslice_active_slices",
		Help: "Currently active slices.",
	})
	linkUtilGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "netslice_link_used_bandwidth_pct",
		Help: "Used bandwidth percentage per directed link.",
	}, []string{"from", "to"})
	latencyHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "netslice_operation_seconds",
		Help: "Latency of lifecycle operations.",
	}, []string{"op"})

	prometheus.MustRegister(activationTotal, admittedTotal, refusedTotal, preemptedTotal,
		activeSlicesGauge, linkUtilGauge, latencyHist)
	registered = true
}

// Recorder emits metrics scoped to one slice name, analogous to a
// per-track recorder: every call is a no-op unless MetricsEnabled().
type Recorder struct {
	slice string
}

// NewRecorder returns a Recorder scoped to sliceName.
func NewRecorder(sliceName string) *Recorder {
	return &Recorder{slice: sliceName}
}

// Attempt records one activation attempt for this slice.
func (r *Recorder) Attempt() {
	if !MetricsEnabled() {
		return
	}
	ensureMetrics()
	activationTotal.WithLabelValues(r.slice).Inc()
}

// Admitted records one successful admission.
func (r *Recorder) Admitted() {
	if !MetricsEnabled() {
		return
	}
	ensureMetrics()
	admittedTotal.Inc()
}

// Refused records one refusal with the given reason tag.
func (r *Recorder) Refused(reason string) {
	if !MetricsEnabled() {
		return
	}
	ensureMetrics()
	refusedTotal.WithLabelValues(reason).Inc()
}

// Preempted records n victims deactivated by preemption for this
// activation.
func (r *Recorder) Preempted(n int) {
	if !MetricsEnabled() || n <= 0 {
		return
	}
	ensureMetrics()
	preemptedTotal.Add(float64(n))
}

// LatencyObs returns an observer for the named operation's duration, or
// nil when metrics are disabled.
func (r *Recorder) LatencyObs(op string) prometheus.Observer {
	if !MetricsEnabled() {
		return nil
	}
	ensureMetrics()
	return latencyHist.WithLabelValues(op)
}

// IncActiveSlices increments the active-slice gauge.
func IncActiveSlices() {
	if !MetricsEnabled() {
		return
	}
	ensureMetrics()
	activeSlicesGauge.Inc()
}

// DecActiveSlices decrements the active-slice gauge.
func DecActiveSlices() {
	if !MetricsEnabled() {
		return
	}
	ensureMetrics()
	activeSlicesGauge.Dec()
}

// SetLinkUtilization records used/capacity as a percentage for the
// directed link from->to.
func SetLinkUtilization(from, to string, usedPct float64) {
	if !MetricsEnabled() {
		return
	}
	ensureMetrics()
	linkUtilGauge.WithLabelValues(from, to).Set(usedPct)
}
