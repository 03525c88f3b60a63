package debounce

import (
	"testing"
	"time"

	"multical/internal/sched"
)

func TestTrailingCallWithLatestArgument(t *testing.T) {
	clock := sched.NewFake(time.Unix(0, 0))
	var got []int
	d := New(clock, 300*time.Millisecond, func(v int) { got = append(got, v) })

	for i := 1; i <= 20; i++ {
		d.Trigger(i)
		clock.Advance(10 * time.Millisecond)
	}
	if len(got) != 0 {
		t.Fatalf("fired during burst: %v", got)
	}

	clock.Advance(300 * time.Millisecond)
	if len(got) != 1 || got[0] != 20 {
		t.Fatalf("expected single call with 20, got %v", got)
	}
}

func TestSeparateWindowsFireSeparately(t *testing.T) {
	clock := sched.NewFake(time.Unix(0, 0))
	calls := 0
	d := New(clock, 100*time.Millisecond, func(struct{}) { calls++ })

	d.Trigger(struct{}{})
	clock.Advance(150 * time.Millisecond)
	d.Trigger(struct{}{})
	clock.Advance(150 * time.Millisecond)

	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestFlushNow(t *testing.T) {
	clock := sched.NewFake(time.Unix(0, 0))
	var got []string
	d := New(clock, time.Second, func(s string) { got = append(got, s) })

	d.Trigger("a")
	flush := d.Trigger("b")
	flush(false)
	if len(got) != 0 {
		t.Fatalf("flush(false) should not run: %v", got)
	}

	flush(true)
	if len(got) != 1 || got[0] != "b" {
		t.Fatalf("flush(true) should run with latest arg, got %v", got)
	}

	clock.Advance(2 * time.Second)
	if len(got) != 1 {
		t.Fatalf("timer still fired after flush: %v", got)
	}

	flush(true)
	if len(got) != 1 {
		t.Fatalf("flush without pending call ran: %v", got)
	}
}

func TestStop(t *testing.T) {
	clock := sched.NewFake(time.Unix(0, 0))
	calls := 0
	d := New(clock, time.Second, func(int) { calls++ })

	d.Trigger(1)
	if !d.Pending() {
		t.Fatal("expected pending call")
	}
	d.Stop()
	clock.Advance(5 * time.Second)
	if calls != 0 {
		t.Fatalf("stopped debouncer fired %d times", calls)
	}
	if clock.Pending() != 0 {
		t.Fatalf("timer leaked: %d pending", clock.Pending())
	}
}
