package core

// ProgressEvent is produced by every component and consumed by the caller's
// progress callback (spec §3, §6). Monotonicity is not required globally but
// is enforced per-stage by the emitting component.
type ProgressEvent struct {
	OpId    OperationId
	Percent float64 // [0, 100], in the global band
	Stage   Stage

	PartialSRT string // optional
	Current    int    // optional, e.g. chunks done
	Total      int    // optional, e.g. chunks total
	Err        error  // optional, set only when Stage == StageError
}

// ProgressSink receives ProgressEvents. It is a plain callback, never a
// strong reference back into the operation that owns it (design notes §9:
// break cyclic callbacks via a message-bus sink).
type ProgressSink func(ProgressEvent)

// NoopSink discards every event. Useful as a default when the caller
// supplies no callback.
func NoopSink(ProgressEvent) {}

// Cancelled emits the single terminal event required on cancellation
// (spec §5): no further progress events follow it for opId.
func Cancelled(sink ProgressSink, opId OperationId) {
	if sink == nil {
		sink = NoopSink
	}
	sink(ProgressEvent{OpId: opId, Percent: 100, Stage: StageCancelled})
}

// Failed emits the terminal error event (spec §7): stage=ERROR and an error
// kind, never a raw stack trace.
func Failed(sink ProgressSink, opId OperationId, err error) {
	if sink == nil {
		sink = NoopSink
	}
	sink(ProgressEvent{OpId: opId, Percent: 100, Stage: StageError, Err: err})
}
