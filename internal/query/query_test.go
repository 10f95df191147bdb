package query

import (
	"testing"

	"litho/internal/diag"
	"litho/internal/source"
)

func TestMemoization(t *testing.T) {
	ctx := NewContext(nil)
	runs := 0
	double := NewTable(ctx, "double", Eq[int], func(_ *Context, k int) int {
		runs++
		return k * 2
	})

	if got := double.Get(3); got != 6 {
		t.Fatalf("Get(3) = %d, want 6", got)
	}
	if got := double.Get(3); got != 6 {
		t.Fatalf("Get(3) = %d, want 6", got)
	}
	if runs != 1 {
		t.Fatalf("compute ran %d times, want 1", runs)
	}
	if got := double.Get(4); got != 8 {
		t.Fatalf("Get(4) = %d, want 8", got)
	}
	if runs != 2 {
		t.Fatalf("compute ran %d times, want 2", runs)
	}
}

func TestInputInvalidation(t *testing.T) {
	ctx := NewContext(nil)
	src := NewInput[string, int](ctx, "src", Eq[int])
	src.Set("a", 1)

	runs := 0
	plusOne := NewTable(ctx, "plusOne", Eq[int], func(_ *Context, k string) int {
		runs++
		return src.Get(k) + 1
	})

	if got := plusOne.Get("a"); got != 2 {
		t.Fatalf("Get = %d, want 2", got)
	}

	src.Set("a", 5)
	if got := plusOne.Get("a"); got != 6 {
		t.Fatalf("after Set, Get = %d, want 6", got)
	}
	if runs != 2 {
		t.Fatalf("compute ran %d times, want 2", runs)
	}

	// Setting the same value must not advance the revision.
	rev := ctx.Revision()
	src.Set("a", 5)
	if ctx.Revision() != rev {
		t.Fatalf("revision advanced on no-op Set")
	}
	plusOne.Get("a")
	if runs != 2 {
		t.Fatalf("compute re-ran after no-op Set")
	}
}

// A downstream query must not recompute when its dependency re-executed
// but produced an equal value.
func TestEarlyCutoff(t *testing.T) {
	ctx := NewContext(nil)
	src := NewInput[string, int](ctx, "src", Eq[int])
	src.Set("a", 3)

	parityRuns, reportRuns := 0, 0
	parity := NewTable(ctx, "parity", Eq[int], func(_ *Context, k string) int {
		parityRuns++
		return src.Get(k) % 2
	})
	report := NewTable(ctx, "report", Eq[string], func(_ *Context, k string) string {
		reportRuns++
		if parity.Get(k) == 0 {
			return "even"
		}
		return "odd"
	})

	if got := report.Get("a"); got != "odd" {
		t.Fatalf("Get = %q, want odd", got)
	}

	// 3 -> 7: parity recomputes but its value is unchanged, so report
	// must be revalidated without re-running.
	src.Set("a", 7)
	if got := report.Get("a"); got != "odd" {
		t.Fatalf("Get = %q, want odd", got)
	}
	if parityRuns != 2 {
		t.Fatalf("parity ran %d times, want 2", parityRuns)
	}
	if reportRuns != 1 {
		t.Fatalf("report ran %d times, want 1", reportRuns)
	}

	src.Set("a", 8)
	if got := report.Get("a"); got != "even" {
		t.Fatalf("Get = %q, want even", got)
	}
	if reportRuns != 2 {
		t.Fatalf("report ran %d times, want 2", reportRuns)
	}
}

func TestIsRunningBreaksRecursion(t *testing.T) {
	ctx := NewContext(nil)
	running := false
	var walk *Table[int, int]
	walk = NewTable(ctx, "walk", Eq[int], func(_ *Context, k int) int {
		if k == 0 {
			// The outer key's frame is still live here.
			running = walk.IsRunning(2)
			return 1
		}
		return walk.Get(k-1) + 1
	})

	if got := walk.Get(2); got != 3 {
		t.Fatalf("walk(2) = %d, want 3", got)
	}
	if !running {
		t.Fatalf("IsRunning false for key on the stack")
	}
	if walk.IsRunning(2) {
		t.Fatalf("IsRunning true after computation finished")
	}
}

func TestCyclePanics(t *testing.T) {
	ctx := NewContext(nil)
	var loop *Table[int, int]
	loop = NewTable(ctx, "loop", Eq[int], func(_ *Context, k int) int {
		return loop.Get(k)
	})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on query cycle")
		}
	}()
	loop.Get(1)
}

func TestDiagnosticReplay(t *testing.T) {
	bag := diag.NewBag(16)
	ctx := NewContext(diag.BagReporter{Bag: bag})
	src := NewInput[string, int](ctx, "src", Eq[int])
	src.Set("a", -1)

	check := NewTable(ctx, "check", Eq[bool], func(c *Context, k string) bool {
		v := src.Get(k)
		if v < 0 {
			c.Report(diag.ResInvalidTypeConstruction, diag.SevError, source.Span{}, "negative value", nil)
			return false
		}
		return true
	})

	check.Get("a")
	if got := len(bag.Items()); got != 1 {
		t.Fatalf("diagnostics after compute = %d, want 1", got)
	}

	// Cache hit in the same revision must not duplicate the diagnostic.
	check.Get("a")
	if got := len(bag.Items()); got != 1 {
		t.Fatalf("diagnostics after hit = %d, want 1", got)
	}

	// A new revision with an unchanged dependency replays it once.
	src.Set("b", 0)
	check.Get("a")
	check.Get("a")
	if got := len(bag.Items()); got != 2 {
		t.Fatalf("diagnostics after replay = %d, want 2", got)
	}

	// Once the value is fixed, recompute drops the diagnostic.
	src.Set("a", 1)
	if !check.Get("a") {
		t.Fatalf("check = false after fix")
	}
	if got := len(bag.Items()); got != 2 {
		t.Fatalf("diagnostics after fix = %d, want 2", got)
	}
}

func TestInputLookup(t *testing.T) {
	ctx := NewContext(nil)
	src := NewInput[string, int](ctx, "src", Eq[int])
	if _, ok := src.Lookup("missing"); ok {
		t.Fatalf("Lookup reported unset key as present")
	}
	src.Set("x", 9)
	v, ok := src.Lookup("x")
	if !ok || v != 9 {
		t.Fatalf("Lookup = (%d, %v), want (9, true)", v, ok)
	}
}
