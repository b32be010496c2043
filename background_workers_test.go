package styx

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestBackgroundWorkersRunsSubmittedTasks(t *testing.T) {
	bg := newBackgroundWorkers(2)
	defer bg.stop()

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		bg.submit(backgroundTask{run: func() { count.Add(1) }})
	}
	bg.waitForCompletion()

	if got := count.Load(); got != 10 {
		t.Fatalf("ran %d tasks, want 10", got)
	}
}

func TestBackgroundWorkersStopIsIdempotent(t *testing.T) {
	bg := newBackgroundWorkers(1)
	bg.stop()
	bg.stop() // must not panic (close of closed channel, double cancel)
}

func TestBackgroundWorkersSubmitAfterStopIsNoop(t *testing.T) {
	bg := newBackgroundWorkers(1)
	bg.stop()

	var ran atomic.Bool
	bg.submit(backgroundTask{run: func() { ran.Store(true) }})
	time.Sleep(10 * time.Millisecond)
	if ran.Load() {
		t.Fatal("task submitted after stop should not run")
	}
}
