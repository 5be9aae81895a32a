package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/databeam/databeam/pkg/config"
	"github.com/databeam/databeam/pkg/result"
	"github.com/databeam/databeam/pkg/sample"
	"github.com/databeam/databeam/pkg/telemetry"
	"github.com/databeam/databeam/pkg/tree"
)

// Config wires a Hub's optional collaborators. Every field may be left
// zero: a Hub with no Policy allows everything, no Backend disables
// buffer backups, no Plugins disables custom transforms, and no
// Telemetry disables logging/metrics/tracing.
type Config struct {
	Telemetry *telemetry.Telemetry
	Policy    tree.PathPolicy
	Backend   tree.BufferBackend
	Plugins   tree.TransformRunner

	// QueueSize bounds the core loop's request channel. Defaults to 64.
	QueueSize int
}

// Hub owns a tree.Tree and serializes every call into it onto a single
// goroutine, so the tree's "one logical thread" guarantee holds
// regardless of how many goroutines the surrounding process runs.
type Hub struct {
	tree *tree.Tree
	tel  *telemetry.Telemetry

	requests chan coreRequest
	stopped  chan struct{}
}

type coreRequest struct {
	fn   func(*tree.Tree)
	done chan struct{}
}

// New creates a Hub and starts its core loop goroutine.
func New(cfg Config) *Hub {
	t := tree.New()
	if cfg.Policy != nil {
		t.SetPolicy(cfg.Policy)
	}
	if cfg.Backend != nil {
		t.SetBufferBackend(cfg.Backend)
	}
	if cfg.Plugins != nil {
		t.SetTransformRunner(cfg.Plugins)
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	h := &Hub{
		tree:     t,
		tel:      cfg.Telemetry,
		requests: make(chan coreRequest, queueSize),
		stopped:  make(chan struct{}),
	}
	go h.loop()
	return h
}

// loop is the core loop: it is the only goroutine that ever touches h.tree.
func (h *Hub) loop() {
	for req := range h.requests {
		req.fn(h.tree)
		close(req.done)
	}
	close(h.stopped)
}

// Submit runs fn on the core loop goroutine and blocks until it returns.
// Every other Hub method is implemented in terms of Submit; callers doing
// anything beyond a single Push/Bringup/Update should prefer those
// narrower methods so the closure they hand to the core loop stays small.
func (h *Hub) Submit(fn func(*tree.Tree)) {
	req := coreRequest{fn: fn, done: make(chan struct{})}
	h.requests <- req
	<-req.done
}

// Close stops accepting new work and waits for the core loop to drain
// and exit. Submit/Push/Update must not be called after Close returns.
func (h *Hub) Close() {
	close(h.requests)
	<-h.stopped
}

// Tree exposes the underlying tree for read-only inspection (entry
// lookups, variant checks) that doesn't need core-loop serialization.
// Mutating or pushing through the returned Tree from outside the core
// loop goroutine is a bug; use Submit, Push, or Update instead.
func (h *Hub) Tree() *tree.Tree { return h.tree }

// Bringup applies a resolved BringupSpec to the tree inside an
// administrative update window, instrumented the same way Update is.
func (h *Hub) Bringup(ctx context.Context, spec *config.BringupSpec) error {
	return h.Update(ctx, "bringup", func(t *tree.Tree) error {
		return config.Apply(t, spec)
	})
}

// Update runs fn inside an admin update window (StartUpdate/EndUpdate),
// on the core loop goroutine, wrapped in the one-span-per-window trace
// the telemetry package provides. admin identifies the caller for
// logging; it is not otherwise interpreted.
func (h *Hub) Update(ctx context.Context, admin string, fn func(*tree.Tree) error) error {
	windowID := fmt.Sprintf("%s-%d", admin, time.Now().UnixNano())
	if h.tel != nil {
		ctx = telemetry.WithUpdateWindowContext(ctx, windowID, admin)
	}

	var err error
	h.Submit(func(t *tree.Tree) {
		t.StartUpdate()
		err = fn(t)
		t.EndUpdate()
	})

	if h.tel != nil {
		telemetry.EndUpdateWindowContext(ctx, windowID, err)
	}
	return err
}

// Push resolves path and delivers s to it via the core loop, recording
// push metrics. Per the hub's tracing policy, individual pushes are not
// spanned — only admin update windows are — so only Metrics is touched
// here, not Tracer.
func (h *Hub) Push(path string, s *sample.Sample) error {
	start := time.Now()
	var (
		pushErr error
		variant string
		found   bool
	)

	h.Submit(func(t *tree.Tree) {
		e, ferr := t.FindEntry(t.Root(), path)
		if ferr != nil {
			pushErr = ferr
			return
		}
		found = true
		variant = e.Variant().String()
		pushErr = t.Push(e, s)
	})

	if h.tel != nil {
		if pushErr != nil {
			h.tel.Metrics.RecordError(errorCode(pushErr))
			_ = h.tel.Events.PublishPushFailed(path, pushErr.Error())
		} else if found {
			h.tel.Metrics.RecordPushAccepted(variant, time.Since(start))
			_ = h.tel.Events.PublishPushCompleted(path, true, time.Since(start))
		}
	}
	return pushErr
}

// Read returns path's current value via the core loop.
func (h *Hub) Read(path string) (*sample.Sample, error) {
	var (
		s   *sample.Sample
		err error
	)
	h.Submit(func(t *tree.Tree) {
		e, ferr := t.FindEntry(t.Root(), path)
		if ferr != nil {
			err = ferr
			return
		}
		s, err = tree.GetCurrentValue(e)
	})
	return s, err
}

// nowSeconds returns the current wall-clock time as epoch seconds, the
// "now" reference the windowed Query* methods resolve a relative
// startTime against. The core tree itself never calls time.Now(); the
// hub supplies it at the call site so the tree stays free of hidden
// wall-clock reads.
func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// QueryMin returns the minimum of path's buffered samples at or after the
// window startTime resolves to (see tree.Tree.QueryMin).
func (h *Hub) QueryMin(path string, startTime float64) (*sample.Sample, error) {
	return h.query(path, startTime, (*tree.Tree).QueryMin)
}

// QueryMax is QueryMin for the maximum.
func (h *Hub) QueryMax(path string, startTime float64) (*sample.Sample, error) {
	return h.query(path, startTime, (*tree.Tree).QueryMax)
}

// QueryMean is QueryMin for the arithmetic mean.
func (h *Hub) QueryMean(path string, startTime float64) (*sample.Sample, error) {
	return h.query(path, startTime, (*tree.Tree).QueryMean)
}

// QueryStdDev is QueryMin for the population standard deviation.
func (h *Hub) QueryStdDev(path string, startTime float64) (*sample.Sample, error) {
	return h.query(path, startTime, (*tree.Tree).QueryStdDev)
}

func (h *Hub) query(path string, startTime float64, fn func(*tree.Tree, *tree.Entry, float64, float64) (*sample.Sample, error)) (*sample.Sample, error) {
	now := nowSeconds()
	var (
		s   *sample.Sample
		err error
	)
	h.Submit(func(t *tree.Tree) {
		e, ferr := t.FindEntry(t.Root(), path)
		if ferr != nil {
			err = ferr
			return
		}
		s, err = fn(t, e, startTime, now)
	})
	return s, err
}

// ReadBufferJson writes path's buffered samples with timestamp >
// startAfter to out as the core's bit-exact JSON array (see
// tree.Tree.ReadBufferJson), invoking completion with the result.
func (h *Hub) ReadBufferJson(path string, startAfter float64, out io.Writer, completion func(error)) {
	h.Submit(func(t *tree.Tree) {
		e, ferr := t.FindEntry(t.Root(), path)
		if ferr != nil {
			completion(ferr)
			return
		}
		t.ReadBufferJson(e, startAfter, out, completion)
	})
}

// errorCode extracts a result.Code string from err for metrics labeling,
// falling back to "fault" for errors outside the hub's taxonomy.
func errorCode(err error) string {
	var re *result.Error
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return string(result.Fault)
}
