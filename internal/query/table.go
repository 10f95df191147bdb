package query

import (
	"fmt"

	"litho/internal/diag"
)

type entry[V any] struct {
	value V
	diags []diag.Diagnostic

	deps []dependency

	lastChanged Revision // value last differed at this revision
	lastChecked Revision // dependencies last validated at this revision
	reportedAt  Revision // diagnostics last replayed at this revision
	running     bool
}

// Table memoizes one query: a pure function of (Context, key). Results
// are invalidated by dependency VALUE changes, never by key identity.
type Table[K comparable, V any] struct {
	name    string
	ctx     *Context
	compute func(*Context, K) V
	equal   func(a, b V) bool
	entries map[K]*entry[V]
}

// NewTable registers a query. equal decides whether a recomputed value
// counts as changed; Eq works for comparable V, custom funcs for the
// rest.
func NewTable[K comparable, V any](ctx *Context, name string, equal func(a, b V) bool, compute func(*Context, K) V) *Table[K, V] {
	if equal == nil || compute == nil {
		panic("query: NewTable requires equal and compute")
	}
	return &Table[K, V]{
		name:    name,
		ctx:     ctx,
		compute: compute,
		equal:   equal,
		entries: make(map[K]*entry[V]),
	}
}

// Eq is the equality function for comparable value types.
func Eq[V comparable](a, b V) bool { return a == b }

// Get returns the memoized value for key, computing or re-validating it
// as needed, and records the read as a dependency of the query that is
// currently executing. Calling Get on a key whose computation is still
// on the stack is a cycle; break it with IsRunning first.
func (t *Table[K, V]) Get(key K) V {
	e := t.validate(key)
	t.ctx.recordDep(func() Revision { return t.validate(key).lastChanged })
	return e.value
}

// IsRunning reports whether key's computation is currently on the call
// stack. Recursive queries probe this to bottom out.
func (t *Table[K, V]) IsRunning(key K) bool {
	e := t.entries[key]
	return e != nil && e.running
}

// validate brings the entry up to date in the current revision and
// replays its diagnostics once per revision. It does not record a
// dependency edge; Get does that, and dependency refresh deliberately
// does not.
func (t *Table[K, V]) validate(key K) *entry[V] {
	e := t.entries[key]
	if e != nil {
		if e.running {
			panic(fmt.Sprintf("query: cycle detected in %q", t.name))
		}
		if e.lastChecked == t.ctx.rev {
			t.maybeReplay(e)
			return e
		}
		if t.depsUnchanged(e) {
			e.lastChecked = t.ctx.rev
			t.maybeReplay(e)
			return e
		}
	}
	return t.recompute(key, e)
}

// depsUnchanged refreshes every recorded dependency; a dependency that
// last changed after this entry was last checked forces a recompute.
func (t *Table[K, V]) depsUnchanged(e *entry[V]) bool {
	for _, d := range e.deps {
		if d.refresh() > e.lastChecked {
			return false
		}
	}
	return true
}

func (t *Table[K, V]) recompute(key K, old *entry[V]) *entry[V] {
	e := old
	if e == nil {
		e = &entry[V]{}
		t.entries[key] = e
	}

	e.running = true
	f := t.ctx.push(t.name)
	defer func() {
		e.running = false
		t.ctx.pop()
	}()

	v := t.compute(t.ctx, key)

	changed := old == nil || !t.equal(old.value, v)
	if changed {
		e.value = v
		e.lastChanged = t.ctx.rev
	}
	e.deps = f.deps
	e.diags = f.diags
	e.lastChecked = t.ctx.rev
	e.reportedAt = t.ctx.rev // emitted live during compute
	return e
}

func (t *Table[K, V]) maybeReplay(e *entry[V]) {
	if e.reportedAt == t.ctx.rev {
		return
	}
	e.reportedAt = t.ctx.rev
	t.ctx.replay(e.diags)
}
