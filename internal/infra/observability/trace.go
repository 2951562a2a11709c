package observability

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultSpanCapacity is how many operations the daemon keeps for
// /api/admin/spans.
const DefaultSpanCapacity = 1000

// Span is one finished ledger operation.
type Span struct {
	TraceID  string            `json:"trace_id"`
	ID       string            `json:"id"`
	Op       string            `json:"op"`
	Start    time.Time         `json:"start"`
	Duration time.Duration     `json:"duration_ns"`
	Error    string            `json:"error,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
}

// Failed reports whether the operation returned an error.
func (s Span) Failed() bool { return s.Error != "" }

// Tracer keeps the most recent operation spans in a fixed-size ring.
type Tracer struct {
	mu   sync.Mutex
	ring []Span
	next int
	full bool
	seq  atomic.Uint64
}

// NewTracer returns a tracer holding at most capacity spans.
func NewTracer(capacity int) *Tracer {
	if capacity <= 0 {
		capacity = DefaultSpanCapacity
	}
	return &Tracer{ring: make([]Span, capacity)}
}

// Begin starts timing op. The span is recorded when the returned func runs.
// Spans started under the same WithTraceID context share its trace ID;
// otherwise the span is its own trace.
func (t *Tracer) Begin(ctx context.Context, op string, attrs map[string]string) func(err error) {
	sp := Span{
		ID:    strconv.FormatUint(t.seq.Add(1), 36),
		Op:    op,
		Start: time.Now(),
		Attrs: attrs,
	}
	sp.TraceID = TraceID(ctx)
	if sp.TraceID == "" {
		sp.TraceID = sp.ID
	}
	return func(err error) {
		sp.Duration = time.Since(sp.Start)
		if err != nil {
			sp.Error = err.Error()
		}
		t.add(sp)
	}
}

func (t *Tracer) add(sp Span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ring[t.next] = sp
	t.next++
	if t.next == len(t.ring) {
		t.next = 0
		t.full = true
	}
}

// Spans returns up to limit recorded spans, newest first. A limit of zero
// or less returns all of them.
func (t *Tracer) Spans(limit int) []Span {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.next
	if t.full {
		n = len(t.ring)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Span, 0, limit)
	for i := 1; i <= limit; i++ {
		out = append(out, t.ring[(t.next-i+len(t.ring))%len(t.ring)])
	}
	return out
}

type traceKey struct{}

// WithTraceID tags ctx so every operation started under it is grouped
// under id. The API uses the request ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// TraceID returns the trace ID carried by ctx, if any.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
