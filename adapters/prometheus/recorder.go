package prometheus

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-assembly/core"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultDurationBuckets covers module and index timings in milliseconds.
var DefaultDurationBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

type Option func(*MetricsRecorder)

func WithNamespace(namespace string) Option {
	return func(r *MetricsRecorder) {
		r.namespace = SanitizeName(namespace)
	}
}

func WithBuckets(buckets ...float64) Option {
	return func(r *MetricsRecorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

// MetricsRecorder exports assembly metrics as prometheus series. Dotted
// names become underscored, and the first observation of a name fixes its
// label set: later tags outside that set are dropped and missing ones are
// recorded empty.
type MetricsRecorder struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	namespace  string
	buckets    []float64
	counters   map[string]*labeledCounter
	histograms map[string]*labeledHistogram
}

type labeledCounter struct {
	vec    *prometheus.CounterVec
	labels []string
}

type labeledHistogram struct {
	vec    *prometheus.HistogramVec
	labels []string
}

func NewMetricsRecorder(registerer prometheus.Registerer, opts ...Option) *MetricsRecorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	recorder := &MetricsRecorder{
		registerer: registerer,
		buckets:    DefaultDurationBuckets,
		counters:   map[string]*labeledCounter{},
		histograms: map[string]*labeledHistogram{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(recorder)
		}
	}
	return recorder
}

func (r *MetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	counter := r.counter(name, tags)
	if counter == nil {
		return
	}
	counter.vec.WithLabelValues(labelValues(counter.labels, tags)...).Add(float64(value))
}

func (r *MetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	histogram := r.histogram(name, tags)
	if histogram == nil {
		return
	}
	histogram.vec.WithLabelValues(labelValues(histogram.labels, tags)...).Observe(value)
}

func (r *MetricsRecorder) counter(name string, tags map[string]string) *labeledCounter {
	metricName := SanitizeName(name)
	if metricName == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.counters[metricName]; ok {
		return existing
	}
	labels := labelNames(tags)
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      metricName,
		Help:      "assembly counter " + name,
	}, labels)
	if err := r.registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			r.counters[metricName] = nil
			return nil
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			r.counters[metricName] = nil
			return nil
		}
		vec = existing
	}
	counter := &labeledCounter{vec: vec, labels: labels}
	r.counters[metricName] = counter
	return counter
}

func (r *MetricsRecorder) histogram(name string, tags map[string]string) *labeledHistogram {
	metricName := SanitizeName(name)
	if metricName == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.histograms[metricName]; ok {
		return existing
	}
	labels := labelNames(tags)
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      metricName,
		Help:      "assembly histogram " + name,
		Buckets:   r.buckets,
	}, labels)
	if err := r.registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			r.histograms[metricName] = nil
			return nil
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			r.histograms[metricName] = nil
			return nil
		}
		vec = existing
	}
	histogram := &labeledHistogram{vec: vec, labels: labels}
	r.histograms[metricName] = histogram
	return histogram
}

// SanitizeName maps a dotted metric or label name onto the prometheus
// charset.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	for i, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch == '_':
			b.WriteRune(ch)
		case ch >= '0' && ch <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(ch)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func labelNames(tags map[string]string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]struct{}{}
	for key := range tags {
		label := SanitizeName(key)
		if label == "" || strings.HasPrefix(label, "__") {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

func labelValues(labels []string, tags map[string]string) []string {
	byLabel := make(map[string]string, len(tags))
	for key, value := range tags {
		byLabel[SanitizeName(key)] = value
	}
	out := make([]string, len(labels))
	for i, label := range labels {
		out[i] = byLabel[label]
	}
	return out
}

var _ core.MetricsRecorder = (*MetricsRecorder)(nil)
