package driver

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"litho/internal/ast"
	"litho/internal/diag"
	"litho/internal/query"
	"litho/internal/resolution"
	"litho/internal/source"
)

// Session drives resolution over a set of AST snapshot files. Loading
// is parallel; resolution itself runs one program at a time.
type Session struct {
	cfg   Config
	cache *DiskCache
}

// FileReport is the outcome for one input snapshot.
type FileReport struct {
	Path      string
	Digest    Digest
	Diags     *diag.Bag
	Broken    bool
	FromCache bool
	// Modules counts the top-level modules resolved; zero for cache
	// hits and load failures.
	Modules int
}

func NewSession(cfg Config) (*Session, error) {
	s := &Session{cfg: cfg}
	if cfg.Cache.Enabled {
		cache, err := OpenDiskCache("litho", cfg.Cache.Dir)
		if err != nil {
			return nil, fmt.Errorf("driver: open cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// DropCache wipes the on-disk cache, if one is configured.
func (s *Session) DropCache() error {
	return s.cache.DropAll()
}

type loaded struct {
	path    string
	digest  Digest
	prog    *ast.Program
	cached  *diskPayload
	loadErr diag.Diagnostic
	failed  bool
}

// ResolveFiles loads every snapshot, then resolves each program's
// modules. Reports come back in input order regardless of load order.
func (s *Session) ResolveFiles(ctx context.Context, paths []string) ([]*FileReport, error) {
	slots := make([]loaded, len(paths))

	jobs := s.cfg.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			slots[i] = s.loadOne(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reports := make([]*FileReport, len(paths))
	for i := range slots {
		reports[i] = s.resolveOne(&slots[i])
	}
	return reports, nil
}

// loadOne reads, digests and decodes one snapshot, consulting the
// cache first. Runs concurrently with other loads.
func (s *Session) loadOne(path string) loaded {
	l := loaded{path: path}

	data, err := os.ReadFile(path) // #nosec G304 -- path is provided by the caller
	if err != nil {
		l.failed = true
		l.loadErr = diag.NewError(diag.IOLoadFileError, source.Span{},
			fmt.Sprintf("cannot read %s: %v", path, err))
		return l
	}
	l.digest = sha256.Sum256(data)

	if s.cache != nil {
		var payload diskPayload
		hit, err := s.cache.Get(l.digest, &payload)
		if err == nil && hit {
			l.cached = &payload
			return l
		}
		// a corrupt cache entry falls through to a full resolve
	}

	prog, err := ast.DecodeSnapshot(bytes.NewReader(data))
	if err != nil {
		l.failed = true
		code := diag.IOSnapshotDecode
		if errors.Is(err, ast.ErrSnapshotSchema) {
			code = diag.IOSnapshotBadVersion
		}
		l.loadErr = diag.NewError(code, source.Span{},
			fmt.Sprintf("cannot decode %s: %v", path, err))
		return l
	}
	l.prog = prog
	return l
}

// resolveOne turns one loaded slot into a report, running the resolver
// when there is no cached outcome to replay.
func (s *Session) resolveOne(l *loaded) *FileReport {
	rep := &FileReport{Path: l.path, Digest: l.digest}
	bag := diag.NewBag(s.cfg.Diagnostics.Max)
	rep.Diags = bag

	switch {
	case l.failed:
		bag.Add(l.loadErr)
		rep.Broken = true
		return rep

	case l.cached != nil:
		replayPayload(bag, l.cached)
		rep.Broken = l.cached.Broken
		rep.FromCache = true
		return rep
	}

	qc := query.NewContext(diag.NewDedupReporter(diag.BagReporter{Bag: bag}))
	r := resolution.New(qc)
	r.SetProgram(l.prog)
	for _, m := range l.prog.Modules() {
		r.ResolveModule(l.prog.IDOf(m))
		rep.Modules++
	}
	bag.Sort()
	rep.Broken = bag.HasErrors()

	if s.cache != nil {
		if err := s.cache.Put(l.digest, payloadFromBag(l.path, bag, rep.Broken)); err != nil {
			bag.Add(diag.New(diag.SevWarning, diag.DrvCacheError, source.Span{},
				fmt.Sprintf("cannot cache result for %s: %v", l.path, err)))
		}
	}
	return rep
}

func payloadFromBag(path string, bag *diag.Bag, broken bool) *diskPayload {
	p := &diskPayload{
		Schema: diskCacheSchemaVersion,
		Path:   path,
		Broken: broken,
		Diags:  make([]diskDiag, 0, bag.Len()),
	}
	for _, d := range bag.Items() {
		dd := diskDiag{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			File:     uint32(d.Primary.File),
			Start:    d.Primary.Start,
			End:      d.Primary.End,
			Message:  d.Message,
		}
		for _, n := range d.Notes {
			dd.Notes = append(dd.Notes, diskNote{
				File: uint32(n.Span.File), Start: n.Span.Start, End: n.Span.End,
				Message: n.Msg,
			})
		}
		p.Diags = append(p.Diags, dd)
	}
	return p
}

func replayPayload(bag *diag.Bag, p *diskPayload) {
	for _, dd := range p.Diags {
		d := diag.Diagnostic{
			Severity: diag.Severity(dd.Severity),
			Code:     diag.Code(dd.Code),
			Message:  dd.Message,
			Primary:  source.Span{File: source.FileID(dd.File), Start: dd.Start, End: dd.End},
		}
		for _, n := range dd.Notes {
			d.Notes = append(d.Notes, diag.Note{
				Span: source.Span{File: source.FileID(n.File), Start: n.Start, End: n.End},
				Msg:  n.Message,
			})
		}
		bag.Add(d)
	}
}
