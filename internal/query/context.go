package query

import (
	"litho/internal/diag"
	"litho/internal/source"
)

// Revision counts input generations. Revision 0 never occurs in a
// stored entry; the context starts at 1.
type Revision uint64

// dependency is one recorded read edge. refresh re-validates the
// dependency in the current revision and reports the revision its
// value last changed at.
type dependency struct {
	refresh func() Revision
}

// frame tracks one executing query.
type frame struct {
	owner string
	deps  []dependency
	diags []diag.Diagnostic
}

// Context owns the revision counter, the executing-query stack and the
// diagnostics sink for one compilation session. All tables of a
// session share one Context. Not safe for concurrent use.
type Context struct {
	rev      Revision
	stack    []*frame
	reporter diag.Reporter
}

func NewContext(reporter diag.Reporter) *Context {
	return &Context{rev: 1, reporter: reporter}
}

func (c *Context) Revision() Revision {
	return c.rev
}

// SetReporter swaps the diagnostics sink (e.g. per-run bags).
func (c *Context) SetReporter(r diag.Reporter) {
	c.reporter = r
}

// Report emits a diagnostic. Inside a query it is also captured on the
// query's result for replay on later cache hits.
func (c *Context) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note) {
	if top := c.top(); top != nil {
		top.diags = append(top.diags, diag.Diagnostic{
			Severity: sev, Code: code, Message: msg, Primary: primary, Notes: notes,
		})
	}
	if c.reporter != nil {
		c.reporter.Report(code, sev, primary, msg, notes)
	}
}

func (c *Context) top() *frame {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

func (c *Context) push(owner string) *frame {
	f := &frame{owner: owner}
	c.stack = append(c.stack, f)
	return f
}

func (c *Context) pop() {
	c.stack = c.stack[:len(c.stack)-1]
}

// recordDep notes a read edge in the currently executing query, if any.
func (c *Context) recordDep(refresh func() Revision) {
	if top := c.top(); top != nil {
		top.deps = append(top.deps, dependency{refresh: refresh})
	}
}

// replay re-emits captured diagnostics to the current sink. They are
// NOT re-captured by an enclosing query; each entry owns its own.
func (c *Context) replay(diags []diag.Diagnostic) {
	if c.reporter == nil {
		return
	}
	for _, d := range diags {
		c.reporter.Report(d.Code, d.Severity, d.Primary, d.Message, d.Notes)
	}
}
