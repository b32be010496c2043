package styx

import (
	"testing"
	"time"
)

func TestNotifierWaitReturnsImmediatelyWhenTrue(t *testing.T) {
	var n notifier
	done := make(chan struct{})
	go func() {
		n.wait(func() bool { return true })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait blocked on an already-true predicate")
	}
}

func TestNotifierWaitUnblocksOnNotify(t *testing.T) {
	var n notifier
	ready := false
	done := make(chan struct{})

	go func() {
		n.wait(func() bool { return ready })
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	ready = true
	n.notifyWhenBlocking()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not unblock after notify")
	}
}

func TestNotifierWaitForTimesOut(t *testing.T) {
	var n notifier
	start := time.Now()
	ok := n.waitFor(30*time.Millisecond, func() bool { return false })
	if ok {
		t.Fatal("waitFor returned true for a predicate that never becomes true")
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("waitFor returned early after %v", elapsed)
	}
}

func TestNotifierWaitForSucceedsBeforeTimeout(t *testing.T) {
	var n notifier
	ready := false
	go func() {
		time.Sleep(10 * time.Millisecond)
		ready = true
		n.notifyWhenBlocking()
	}()

	ok := n.waitFor(time.Second, func() bool { return ready })
	if !ok {
		t.Fatal("waitFor should have observed predicate becoming true")
	}
}
