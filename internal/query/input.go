package query

type inputEntry[V any] struct {
	value       V
	lastChanged Revision
}

// Input is a keyed source value set from outside the query system.
// Setting a key to a different value advances the revision; setting it
// to an equal value is a no-op, so downstream queries stay valid.
type Input[K comparable, V any] struct {
	name    string
	ctx     *Context
	equal   func(a, b V) bool
	entries map[K]*inputEntry[V]
}

func NewInput[K comparable, V any](ctx *Context, name string, equal func(a, b V) bool) *Input[K, V] {
	if equal == nil {
		panic("query: NewInput requires equal")
	}
	return &Input[K, V]{
		name:    name,
		ctx:     ctx,
		equal:   equal,
		entries: make(map[K]*inputEntry[V]),
	}
}

// Set installs or updates a key. Must not be called while a query is
// executing.
func (in *Input[K, V]) Set(key K, v V) {
	if len(in.ctx.stack) != 0 {
		panic("query: Input.Set during query execution")
	}
	e := in.entries[key]
	if e != nil && in.equal(e.value, v) {
		return
	}
	in.ctx.rev++
	if e == nil {
		e = &inputEntry[V]{}
		in.entries[key] = e
	}
	e.value = v
	e.lastChanged = in.ctx.rev
}

// Get reads a key and records the read as a dependency of the query
// currently executing. Reading an unset key is a caller bug.
func (in *Input[K, V]) Get(key K) V {
	e := in.entries[key]
	if e == nil {
		panic("query: Input.Get on unset key " + in.name)
	}
	in.ctx.recordDep(func() Revision { return e.lastChanged })
	return e.value
}

// Lookup is Get that tolerates unset keys.
func (in *Input[K, V]) Lookup(key K) (V, bool) {
	e := in.entries[key]
	if e == nil {
		var zero V
		return zero, false
	}
	in.ctx.recordDep(func() Revision { return e.lastChanged })
	return e.value, true
}
