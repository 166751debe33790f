package registry

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/subtitlepipe/core/internal/core"
)

func newTestOperation() (*core.Operation, core.OperationId) {
	id := core.NewOperationId()
	op := core.NewOperation(context.Background(), id)
	_ = op.Start()
	return op, id
}

func TestRegister_TracksOperation(t *testing.T) {
	r := New(Options{})
	op, id := newTestOperation()
	r.Register(op, "")

	if !r.Active(id) {
		t.Fatalf("expected %s to be active after Register", id)
	}
}

func TestCancel_FiresOperationAndTerminatesProcess(t *testing.T) {
	r := New(Options{})
	op, id := newTestOperation()
	r.Register(op, "")

	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot spawn test process: %v", err)
	}
	r.RecordProcess(id, cmd.Process)

	if err := r.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if op.State() != core.Cancelled {
		t.Fatalf("expected op state CANCELLED, got %s", op.State())
	}
	if r.Active(id) {
		t.Fatalf("expected operation to be dropped from registry after Cancel")
	}

	_ = cmd.Wait()
}

func TestCancel_RemovesTempDir(t *testing.T) {
	r := New(Options{})
	op, id := newTestOperation()
	r.Register(op, "")

	dir := filepath.Join(t.TempDir(), "op-temp")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	r.SetTempDir(id, dir)

	if err := r.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected temp dir to be removed, stat err = %v", err)
	}
}

func TestCancel_ClosesBrowser(t *testing.T) {
	r := New(Options{})
	op, id := newTestOperation()
	r.Register(op, "")

	closed := false
	r.SetBrowser(id, fakeBrowser{closeFn: func() error { closed = true; return nil }})

	if err := r.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !closed {
		t.Fatalf("expected browser to be closed on cancel")
	}
}

func TestCancel_EmitsCancelledEvent(t *testing.T) {
	r := New(Options{})
	op, id := newTestOperation()
	r.Register(op, "")

	var got core.ProgressEvent
	var mu sync.Mutex
	r.Subscribe(id, func(evt core.ProgressEvent) {
		mu.Lock()
		got = evt
		mu.Unlock()
	})

	if err := r.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got.Stage != core.StageCancelled {
		t.Fatalf("expected a StageCancelled event, got %+v", got)
	}
}

func TestCancelSession_CancelsAllMatchingOperations(t *testing.T) {
	r := New(Options{})
	opA, idA := newTestOperation()
	opB, idB := newTestOperation()
	opC, idC := newTestOperation()
	r.Register(opA, "session-1")
	r.Register(opB, "session-1")
	r.Register(opC, "session-2")

	r.CancelSession("session-1")

	if opA.State() != core.Cancelled || opB.State() != core.Cancelled {
		t.Fatalf("expected session-1 operations cancelled, got %s / %s", opA.State(), opB.State())
	}
	if opC.State() == core.Cancelled {
		t.Fatalf("expected session-2 operation to remain untouched")
	}
	if r.Active(idA) || r.Active(idB) {
		t.Fatalf("expected cancelled operations to be dropped")
	}
	if !r.Active(idC) {
		t.Fatalf("expected unrelated operation to remain active")
	}
}

func TestRelease_DropsWithoutCancelling(t *testing.T) {
	r := New(Options{})
	op, id := newTestOperation()
	r.Register(op, "")

	_ = op.Complete()
	r.Release(id)

	if r.Active(id) {
		t.Fatalf("expected operation to be dropped after Release")
	}
	if op.State() != core.Completed {
		t.Fatalf("Release must not alter operation state, got %s", op.State())
	}
}

func TestHeartbeat_RepeatsLastKnownPercent(t *testing.T) {
	r := New(Options{HeartbeatInterval: 10 * time.Millisecond})
	op, id := newTestOperation()
	r.Register(op, "")

	r.RecordProgress(id, core.ProgressEvent{OpId: id, Percent: 42, Stage: core.StageTranscribe})

	ticks := make(chan core.ProgressEvent, 4)
	r.Subscribe(id, func(evt core.ProgressEvent) {
		select {
		case ticks <- evt:
		default:
		}
	})

	select {
	case evt := <-ticks:
		if evt.Percent != 42 {
			t.Fatalf("expected heartbeat to repeat last known percent 42, got %v", evt.Percent)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for heartbeat tick")
	}

	r.Release(id)
}

func TestCancel_UnknownOperationIsNoop(t *testing.T) {
	r := New(Options{})
	if err := r.Cancel(core.NewOperationId()); err != nil {
		t.Fatalf("expected no error cancelling an unknown operation, got %v", err)
	}
}

type fakeBrowser struct {
	closeFn func() error
}

func (f fakeBrowser) Close() error { return f.closeFn() }
