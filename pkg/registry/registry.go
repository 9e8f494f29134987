// Package registry holds metric descriptors and their current samples.
//
// A Registry is cheap to build and is normally created for a single scrape:
// descriptors are declared, samples are filled from host state and drained
// counters, and the snapshot is collected for rendering. Nothing survives the
// request except what the buffered counter cache holds.
package registry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/protobuf/proto"
)

var (
	// ErrLabelCountMismatch is the cause of the panic raised when a label
	// value tuple does not match the descriptor's label names.
	ErrLabelCountMismatch = errors.New("label count mismatch")

	// ErrKindMismatch is the cause of the panic raised when a gauge operation
	// is applied to a counter or the other way round.
	ErrKindMismatch = errors.New("metric kind mismatch")

	// ErrNegativeDelta is the cause of the panic raised when a counter would
	// decrease.
	ErrNegativeDelta = errors.New("counter cannot be decreased")

	// ErrUnknownDescriptor is the cause of the panic raised when a descriptor
	// was not registered with this registry.
	ErrUnknownDescriptor = errors.New("descriptor not registered")
)

// Kind is the metric type of a descriptor.
type Kind int

const (
	// Gauge values are overwritten with the latest observed state.
	Gauge Kind = iota
	// Counter values only increase.
	Counter
)

// String returns the exposition name of the kind.
func (k Kind) String() string {
	switch k {
	case Gauge:
		return "gauge"
	case Counter:
		return "counter"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Descriptor describes a registered metric. It is immutable.
type Descriptor struct {
	name       string
	help       string
	kind       Kind
	labelNames []string
}

// Name returns the metric name.
func (d *Descriptor) Name() string { return d.name }

// Help returns the help text.
func (d *Descriptor) Help() string { return d.help }

// Kind returns the metric kind.
func (d *Descriptor) Kind() Kind { return d.kind }

// LabelNames returns a copy of the ordered label names.
func (d *Descriptor) LabelNames() []string {
	return append([]string(nil), d.labelNames...)
}

// Sample is the value of one label tuple.
type Sample struct {
	LabelValues []string
	Value       float64
}

// Family is a descriptor together with its samples.
type Family struct {
	Descriptor *Descriptor
	Samples    []Sample
}

// series keeps the samples of one descriptor in first-seen order.
type series struct {
	keys   []string
	values map[string]*Sample
}

// Registry holds descriptors in registration order.
type Registry struct {
	mu      sync.RWMutex
	order   []*Descriptor
	byName  map[string]*Descriptor
	samples map[*Descriptor]*series
}

var _ prometheus.Gatherer = (*Registry)(nil)

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byName:  make(map[string]*Descriptor),
		samples: make(map[*Descriptor]*series),
	}
}

// GetOrRegister returns the descriptor registered under name, creating it on
// first use. Later calls ignore kind, help and labelNames.
func (r *Registry) GetOrRegister(kind Kind, name, help string, labelNames []string) *Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.byName[name]; ok {
		return d
	}

	d := &Descriptor{
		name:       name,
		help:       help,
		kind:       kind,
		labelNames: append([]string(nil), labelNames...),
	}
	r.byName[name] = d
	r.order = append(r.order, d)
	r.samples[d] = &series{values: make(map[string]*Sample)}
	return d
}

// GetOrRegisterGauge is GetOrRegister for gauges.
func (r *Registry) GetOrRegisterGauge(name, help string, labelNames []string) *Descriptor {
	return r.GetOrRegister(Gauge, name, help, labelNames)
}

// GetOrRegisterCounter is GetOrRegister for counters.
func (r *Registry) GetOrRegisterCounter(name, help string, labelNames []string) *Descriptor {
	return r.GetOrRegister(Counter, name, help, labelNames)
}

// SetGauge overwrites the sample of the given label tuple.
// It panics on a kind or arity mismatch.
func (r *Registry) SetGauge(d *Descriptor, value float64, labelValues ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sample(d, Gauge, labelValues)
	s.Value = value
}

// IncrementCounter adds delta to the sample of the given label tuple,
// creating it at 0 first. It panics on a negative delta or a kind or arity
// mismatch.
func (r *Registry) IncrementCounter(d *Descriptor, delta float64, labelValues ...string) {
	if delta < 0 {
		panic(fmt.Errorf("%w: %s by %v", ErrNegativeDelta, d.name, delta))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sample(d, Counter, labelValues)
	s.Value += delta
}

// sample returns the sample for labelValues, creating it if needed.
// Callers hold r.mu.
func (r *Registry) sample(d *Descriptor, kind Kind, labelValues []string) *Sample {
	if r.byName[d.name] != d {
		panic(fmt.Errorf("%w: %s", ErrUnknownDescriptor, d.name))
	}
	if d.kind != kind {
		panic(fmt.Errorf("%w: %s is a %s, not a %s", ErrKindMismatch, d.name, d.kind, kind))
	}
	if len(labelValues) != len(d.labelNames) {
		panic(fmt.Errorf("%w: %s expected %d labels, got %d",
			ErrLabelCountMismatch, d.name, len(d.labelNames), len(labelValues)))
	}

	ser := r.samples[d]
	key := labelsKey(labelValues)
	if s, ok := ser.values[key]; ok {
		return s
	}

	s := &Sample{LabelValues: append([]string(nil), labelValues...)}
	ser.values[key] = s
	ser.keys = append(ser.keys, key)
	return s
}

// Collect returns a snapshot of all descriptors in registration order with
// their samples in first-seen order.
func (r *Registry) Collect() []Family {
	r.mu.RLock()
	defer r.mu.RUnlock()

	families := make([]Family, 0, len(r.order))
	for _, d := range r.order {
		ser := r.samples[d]
		samples := make([]Sample, 0, len(ser.keys))
		for _, key := range ser.keys {
			s := ser.values[key]
			samples = append(samples, Sample{
				LabelValues: append([]string(nil), s.LabelValues...),
				Value:       s.Value,
			})
		}
		families = append(families, Family{Descriptor: d, Samples: samples})
	}
	return families
}

// Gather implements prometheus.Gatherer. Families keep registration order
// and label pairs keep descriptor order.
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	families := r.Collect()
	out := make([]*dto.MetricFamily, 0, len(families))

	for _, f := range families {
		d := f.Descriptor
		mf := &dto.MetricFamily{
			Name: proto.String(d.name),
			Help: proto.String(d.help),
		}
		switch d.kind {
		case Gauge:
			mf.Type = dto.MetricType_GAUGE.Enum()
		case Counter:
			mf.Type = dto.MetricType_COUNTER.Enum()
		default:
			return nil, fmt.Errorf("%w: %s has unsupported kind %s", ErrKindMismatch, d.name, d.kind)
		}

		for _, s := range f.Samples {
			m := &dto.Metric{Label: make([]*dto.LabelPair, 0, len(d.labelNames))}
			for i, name := range d.labelNames {
				m.Label = append(m.Label, &dto.LabelPair{
					Name:  proto.String(name),
					Value: proto.String(s.LabelValues[i]),
				})
			}
			if d.kind == Gauge {
				m.Gauge = &dto.Gauge{Value: proto.Float64(s.Value)}
			} else {
				m.Counter = &dto.Counter{Value: proto.Float64(s.Value)}
			}
			mf.Metric = append(mf.Metric, m)
		}
		out = append(out, mf)
	}
	return out, nil
}

// labelsKey generates a unique key for a set of label values. Each value is
// length-prefixed so no two tuples share a key.
func labelsKey(values []string) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}
