package statsd

import (
	"maps"
	"sync"
	"time"
)

// Metric is one observation captured by Recorder.
type Metric struct {
	Kind  string // count, gauge or timing
	Name  string
	Value float64
	Tags  map[string]string
	Line  string // as Client would have sent it
}

// Recorder is an in-memory Sink for tests and dry runs. The zero value
// renders lines with DefaultPrefix and no auth_mode tag.
type Recorder struct {
	mu      sync.Mutex
	enc     *encoder
	metrics []Metric
}

var _ Sink = (*Recorder)(nil)

// NewRecorder returns a Recorder that renders lines like a Client dialed with opts.
func NewRecorder(opts Options) *Recorder {
	enc := newEncoder(opts)
	return &Recorder{enc: &enc}
}

func (r *Recorder) Count(name string, value int64, tags map[string]string) {
	r.add(Metric{Kind: "count", Name: name, Value: float64(value), Tags: tags}, countValue(value), "c")
}

func (r *Recorder) Gauge(name string, value float64, tags map[string]string) {
	r.add(Metric{Kind: "gauge", Name: name, Value: value, Tags: tags}, gaugeValue(value), "g")
}

func (r *Recorder) Timing(name string, value time.Duration, tags map[string]string) {
	ms := float64(value) / float64(time.Millisecond)
	r.add(Metric{Kind: "timing", Name: name, Value: ms, Tags: tags}, timingValue(value), "ms")
}

func (r *Recorder) add(m Metric, value, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil {
		enc := newEncoder(Options{})
		r.enc = &enc
	}
	m.Tags = maps.Clone(m.Tags)
	m.Line = r.enc.line(m.Name, value, kind, m.Tags)
	r.metrics = append(r.metrics, m)
}

// Metrics returns a copy of everything recorded so far.
func (r *Recorder) Metrics() []Metric {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Metric(nil), r.metrics...)
}

// Lines returns the recorded metrics in wire format.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.metrics))
	for i, m := range r.metrics {
		out[i] = m.Line
	}
	return out
}
