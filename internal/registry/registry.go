// Package registry tracks active operations so a long-running pipeline run
// can be found again, cancelled, and cleaned up from outside the goroutine
// that is driving it (spec §4.9). It generalizes a single-process,
// double-Ctrl+C interrupt idiom to a map of concurrently running
// operations, each with its own child processes, browser handle, and temp
// directory.
package registry

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/subtitlepipe/core/internal/core"
)

// Process is the subset of *os.Process the registry needs to terminate a
// child on cancel. Child-process owners (ffmpeg/ffprobe runs) register
// themselves so cancel can reach processes the Operation's context
// cancellation alone may not reap quickly enough (spec §4.9: "terminate
// child processes").
type Process interface {
	Kill() error
}

// Browser is the subset of a headless-browser session the registry needs to
// close on cancel (Mode B PNG rendering, spec §4.8-4.9).
type Browser interface {
	Close() error
}

// trackedOperation bundles an *core.Operation with the extra per-operation
// bookkeeping spec §4.9 requires: child processes, an optional browser
// handle, a temp directory, and progress subscribers.
type trackedOperation struct {
	mu sync.Mutex

	op       *core.Operation
	session  string // originating UI session id, empty if none
	tempDir  string
	browser  Browser
	procs    map[*os.Process]Process
	subs     []core.ProgressSink
	lastPct  float64
	lastStg  core.Stage
	stopHeartbeat context.CancelFunc
}

// Registry is the process-wide table of active operations (spec §4.9).
type Registry struct {
	mu  sync.Mutex
	ops map[core.OperationId]*trackedOperation

	heartbeatInterval time.Duration
	logger            zerolog.Logger
	metrics           core.Metrics // nil-safe
}

// Options configures a Registry. Zero value is usable: HeartbeatInterval
// defaults to 5s (spec §4.9), Logger defaults to a disabled logger.
type Options struct {
	HeartbeatInterval time.Duration
	Logger            zerolog.Logger
	Metrics           core.Metrics
}

// New creates an empty Registry.
func New(opts Options) *Registry {
	interval := opts.HeartbeatInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Registry{
		ops:               make(map[core.OperationId]*trackedOperation),
		heartbeatInterval: interval,
		logger:            opts.Logger,
		metrics:           opts.Metrics,
	}
}

// Register adopts op into the registry, tagged with the originating UI
// session (empty string if there is none to track), and starts its
// heartbeat ticker. It returns a cancellation token: calling the returned
// func is equivalent to Cancel(op.ID()).
func (r *Registry) Register(op *core.Operation, session string) (cancel func()) {
	hbCtx, stopHeartbeat := context.WithCancel(context.Background())
	t := &trackedOperation{
		op:            op,
		session:       session,
		procs:         make(map[*os.Process]Process),
		stopHeartbeat: stopHeartbeat,
	}

	r.mu.Lock()
	r.ops[op.ID()] = t
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.OperationStarted()
	}

	go r.runHeartbeat(hbCtx, op.ID(), t)

	return func() { _ = r.Cancel(op.ID()) }
}

// Subscribe registers sink to receive progress events for opId, including
// the synthetic heartbeat ticks. Returns false if opId is not registered.
func (r *Registry) Subscribe(opId core.OperationId, sink core.ProgressSink) bool {
	t := r.lookup(opId)
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, sink)
	return true
}

// RecordProgress updates the last-known percent/stage for opId (used by the
// heartbeat to repeat it) and fans the event out to subscribers.
func (r *Registry) RecordProgress(opId core.OperationId, evt core.ProgressEvent) {
	t := r.lookup(opId)
	if t == nil {
		return
	}
	t.mu.Lock()
	t.lastPct = evt.Percent
	t.lastStg = evt.Stage
	subs := append([]core.ProgressSink(nil), t.subs...)
	t.mu.Unlock()

	for _, sink := range subs {
		sink(evt)
	}
}

// RecordProcess tracks a spawned child process so Cancel can kill it.
func (r *Registry) RecordProcess(opId core.OperationId, proc *os.Process) {
	t := r.lookup(opId)
	if t == nil {
		return
	}
	t.mu.Lock()
	t.procs[proc] = proc
	t.mu.Unlock()
	if r.metrics != nil {
		r.metrics.ProcessSpawned()
	}
}

// ForgetProcess stops tracking proc, called once it has exited on its own.
func (r *Registry) ForgetProcess(opId core.OperationId, proc *os.Process) {
	t := r.lookup(opId)
	if t == nil {
		return
	}
	t.mu.Lock()
	_, had := t.procs[proc]
	delete(t.procs, proc)
	t.mu.Unlock()
	if had && r.metrics != nil {
		r.metrics.ProcessExited()
	}
}

// SetBrowser attaches a headless-browser handle to opId, closed on cancel.
func (r *Registry) SetBrowser(opId core.OperationId, b Browser) {
	t := r.lookup(opId)
	if t == nil {
		return
	}
	t.mu.Lock()
	t.browser = b
	t.mu.Unlock()
}

// SetTempDir records opId's owned temp directory, removed on cancel.
func (r *Registry) SetTempDir(opId core.OperationId, dir string) {
	t := r.lookup(opId)
	if t == nil {
		return
	}
	t.mu.Lock()
	t.tempDir = dir
	t.mu.Unlock()
}

// Cancel fires opId's cancellation token, kills tracked child processes,
// closes any browser handle, removes the temp directory, and stops the
// heartbeat (spec §4.9). Safe to call more than once; a second call is a
// no-op once the operation is terminal.
func (r *Registry) Cancel(opId core.OperationId) error {
	t := r.lookup(opId)
	if t == nil {
		return nil
	}

	t.mu.Lock()
	procs := make([]Process, 0, len(t.procs))
	for _, p := range t.procs {
		procs = append(procs, p)
	}
	browser := t.browser
	tempDir := t.tempDir
	t.mu.Unlock()

	for _, p := range procs {
		_ = p.Kill()
	}
	if browser != nil {
		_ = browser.Close()
	}
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	err := t.op.Cancel()
	t.stopHeartbeat()
	core.Cancelled(r.sinkFor(t), opId)

	if r.metrics != nil {
		r.metrics.OperationFinished(t.op.State().String())
	}

	r.mu.Lock()
	delete(r.ops, opId)
	r.mu.Unlock()

	return err
}

// Release drops opId from the registry without cancelling it, called once
// the operation finished normally (Complete/Fail already ran its own
// release hooks). Stops the heartbeat so it doesn't outlive the operation.
func (r *Registry) Release(opId core.OperationId) {
	t := r.lookup(opId)
	if t == nil {
		return
	}
	t.stopHeartbeat()

	if r.metrics != nil {
		r.metrics.OperationFinished(t.op.State().String())
	}

	r.mu.Lock()
	delete(r.ops, opId)
	r.mu.Unlock()
}

// CancelSession cancels every operation registered under session. Used when
// the originating UI session disappears (spec §4.9: "auto-cancel").
func (r *Registry) CancelSession(session string) {
	if session == "" {
		return
	}
	r.mu.Lock()
	var ids []core.OperationId
	for id, t := range r.ops {
		t.mu.Lock()
		match := t.session == session
		t.mu.Unlock()
		if match {
			ids = append(ids, id)
		}
	}
	r.mu.Unlock()

	for _, id := range ids {
		_ = r.Cancel(id)
	}
}

// Active reports whether opId is currently tracked.
func (r *Registry) Active(opId core.OperationId) bool {
	return r.lookup(opId) != nil
}

func (r *Registry) lookup(opId core.OperationId) *trackedOperation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ops[opId]
}

func (r *Registry) sinkFor(t *trackedOperation) core.ProgressSink {
	t.mu.Lock()
	subs := append([]core.ProgressSink(nil), t.subs...)
	t.mu.Unlock()
	return func(evt core.ProgressEvent) {
		for _, sink := range subs {
			sink(evt)
		}
	}
}

// runHeartbeat emits a repeated progress tick at the last known percent
// every heartbeatInterval, so long quiet phases (model calls, ffmpeg passes
// with no -progress output) don't make UI clients think the connection died
// (spec §4.9).
func (r *Registry) runHeartbeat(ctx context.Context, opId core.OperationId, t *trackedOperation) {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.mu.Lock()
			pct, stage := t.lastPct, t.lastStg
			subs := append([]core.ProgressSink(nil), t.subs...)
			t.mu.Unlock()

			evt := core.ProgressEvent{OpId: opId, Percent: pct, Stage: stage}
			for _, sink := range subs {
				sink(evt)
			}
		}
	}
}
