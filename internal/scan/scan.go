// Package scan drives a scan to completion (C5): given a working tree and
// a target revision, it decides which files to reparse, computes the
// one-hop dependent set, and coordinates the parser frontends and the
// graph store to bring the store's latest commit snapshot in line with
// that revision.
package scan

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/reviewbot/codegraph/internal/errors"
	"github.com/reviewbot/codegraph/internal/frontend"
	"github.com/reviewbot/codegraph/internal/ir"
	"github.com/reviewbot/codegraph/internal/store"
)

// FileReader reads a file's content, and enumerates every file in the
// working tree — the file walker is an external collaborator per the
// design this package follows; Scanner depends on the small interface it
// needs rather than owning tree-walking itself.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
	WalkTree() ([]string, error)
}

// VCS is the subset of version-control operations the orchestrator needs
// to compute a change set between two revisions.
type VCS interface {
	ChangedFiles(lastRevision, currentRevision string) ([]string, error)
}

// Options tunes a single scan invocation.
type Options struct {
	DryRun            bool
	ForceFull         bool
	LanguageFilter    map[ir.Language]bool // empty/nil means no filter
	FullScanThreshold int
}

// Result summarizes a completed scan, per spec §7's "user-visible failure"
// reporting contract: a scan always reports what it did, never just an
// error.
type Result struct {
	CommitID     int64
	Revision     string
	NoOp         bool
	FullScan     bool
	FilesIndexed int
	SymbolsFound int
	EdgesFound   int
	Errors       []string
}

// Scanner coordinates the store, the frontend registry, and VCS access to
// run scans.
type Scanner struct {
	store     store.Store
	frontends *frontend.Registry
	vcs       VCS
	files     FileReader
	logger    *logrus.Logger
}

// New returns a Scanner.
func New(st store.Store, frontends *frontend.Registry, vcs VCS, files FileReader, logger *logrus.Logger) *Scanner {
	return &Scanner{store: st, frontends: frontends, vcs: vcs, files: files, logger: logger}
}

// Scan runs the state machine described in spec §4.5 against
// currentRevision.
func (s *Scanner) Scan(ctx context.Context, currentRevision string, opts Options) (*Result, error) {
	if opts.FullScanThreshold <= 0 {
		opts.FullScanThreshold = 100
	}

	last, err := s.store.LatestCommit(ctx)
	if err != nil && err != store.ErrNotFound {
		return nil, errors.StoreError(err, "load last scanned commit")
	}
	if last != nil && last.Revision == currentRevision {
		return &Result{Revision: currentRevision, NoOp: true}, nil
	}

	lastRevision := ""
	if last != nil {
		lastRevision = last.Revision
	}

	plan, fullScan, err := s.computePlan(lastRevision, currentRevision, opts)
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return &Result{Revision: currentRevision, NoOp: true}, nil
	}

	if opts.DryRun {
		return &Result{Revision: currentRevision, FullScan: fullScan, FilesIndexed: len(plan)}, nil
	}

	commitID, err := s.store.GetOrCreateCommit(ctx, currentRevision)
	if err != nil {
		return nil, errors.StoreError(err, "create commit snapshot")
	}

	if !fullScan {
		for _, path := range plan {
			if err := s.store.DeleteFileData(ctx, commitID, path); err != nil {
				return nil, errors.StoreError(err, fmt.Sprintf("delete file data for %s", path))
			}
		}
	}

	result := &Result{CommitID: commitID, Revision: currentRevision, FullScan: fullScan}

	outcomes := make([]parseOutcome, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range plan {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			outcomes[i] = s.parseOne(path, currentRevision)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, o := range outcomes {
		if o.err == errUnrecognizedExtension {
			// §8 boundary behavior: no file row, no log, no error count.
			continue
		}
		if o.err != nil {
			s.logger.WithError(o.err).WithField("file", o.path).Warn("skipping file")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", o.path, o.err))
			continue
		}

		if err := s.store.InsertFile(ctx, commitID, o.path, o.contentHash, int64(len(o.content))); err != nil {
			return nil, errors.StoreError(err, fmt.Sprintf("insert file %s", o.path))
		}
		result.FilesIndexed++

		if !o.recognized {
			continue
		}
		for _, sym := range o.triple.Symbols {
			if !sym.Span.Valid() {
				continue
			}
			if err := s.store.InsertSymbol(ctx, commitID, sym); err != nil {
				return nil, errors.StoreError(err, fmt.Sprintf("insert symbol %s", sym.ID))
			}
			result.SymbolsFound++
		}
		for _, edge := range o.triple.Edges {
			if err := s.store.InsertEdge(ctx, commitID, edge); err != nil {
				return nil, errors.StoreError(err, fmt.Sprintf("insert edge in %s", o.path))
			}
			result.EdgesFound++
		}
		for _, occ := range o.triple.Occurrences {
			if !occ.Span.Valid() {
				continue
			}
			if err := s.store.InsertOccurrence(ctx, commitID, occ); err != nil {
				return nil, errors.StoreError(err, fmt.Sprintf("insert occurrence in %s", o.path))
			}
		}
	}

	if err := s.store.UpdateCommitCounters(ctx, commitID, result.FilesIndexed, result.SymbolsFound); err != nil {
		return nil, errors.StoreError(err, "update commit counters")
	}

	s.logger.WithFields(logrus.Fields{
		"revision": currentRevision,
		"files":    result.FilesIndexed,
		"symbols":  result.SymbolsFound,
		"edges":    result.EdgesFound,
		"errors":   len(result.Errors),
	}).Info("scan complete")

	return result, nil
}

// parseOutcome is what parseOne produces for a single file.
type parseOutcome struct {
	path        string
	content     []byte
	contentHash string
	triple      ir.IRTriple
	lang        ir.Language
	recognized  bool
	err         error
}

// parseOne reads, hashes, and (if recognized) parses one file. It performs
// no store writes — steps 1-3 of §4.5.2 are pure and safe to run
// concurrently across files; only the caller's serialized insert loop
// touches the store.
func (s *Scanner) parseOne(path string, currentRevision string) parseOutcome {
	content, err := s.files.ReadFile(path)
	if err != nil {
		return parseOutcome{path: path, err: errors.IOErrorf(err, "read %s", path)}
	}
	hash := ir.ContentHash(content)

	fe, lang, ok := s.frontends.Lookup(path)
	if !ok {
		if lang == ir.LangUnknown {
			// Unrecognized extension: no file row at all (§8 boundary
			// behavior), signaled by the caller treating this error as
			// "skip entirely."
			return parseOutcome{path: path, err: errUnrecognizedExtension}
		}
		// Recognized language, no frontend shipped in this build: still
		// track the file, just don't parse it.
		return parseOutcome{path: path, content: content, contentHash: hash, lang: lang}
	}

	triple, err := fe.Parse(path, content, currentRevision)
	if err != nil {
		return parseOutcome{path: path, content: content, contentHash: hash, lang: lang, err: errors.ParseErrorf(err, "parse %s", path)}
	}
	return parseOutcome{path: path, content: content, contentHash: hash, triple: triple, lang: lang, recognized: true}
}

var errUnrecognizedExtension = errors.MalformedError("unrecognized extension")

// computePlan implements §4.5.1's change-set computation and the
// full-vs-incremental decision.
func (s *Scanner) computePlan(lastRevision, currentRevision string, opts Options) (plan []string, fullScan bool, err error) {
	if opts.ForceFull || lastRevision == "" {
		all, err := s.files.WalkTree()
		if err != nil {
			return nil, true, errors.IOErrorf(err, "walk working tree")
		}
		return filterLanguages(all, opts.LanguageFilter), true, nil
	}

	modified, err := s.vcs.ChangedFiles(lastRevision, currentRevision)
	if err != nil {
		// Transient VCS failure: fall back to a full scan (§7 policy 1).
		s.logger.WithError(err).Warn("vcs diff failed, falling back to full scan")
		all, walkErr := s.files.WalkTree()
		if walkErr != nil {
			return nil, true, errors.IOErrorf(walkErr, "walk working tree")
		}
		return filterLanguages(all, opts.LanguageFilter), true, nil
	}
	modified = filterRecognized(modified)

	if len(modified) > opts.FullScanThreshold {
		all, err := s.files.WalkTree()
		if err != nil {
			return nil, true, errors.IOErrorf(err, "walk working tree")
		}
		return filterLanguages(all, opts.LanguageFilter), true, nil
	}

	changeSet := make(map[string]bool, len(modified))
	for _, path := range modified {
		changeSet[path] = true
	}
	for _, path := range modified {
		dependents, err := s.store.GetFileDependents(context.Background(), path)
		if err != nil {
			return nil, false, errors.StoreError(err, fmt.Sprintf("get dependents of %s", path))
		}
		for _, dep := range dependents {
			changeSet[dep] = true
		}
	}

	plan = make([]string, 0, len(changeSet))
	for path := range changeSet {
		plan = append(plan, path)
	}
	return filterLanguages(plan, opts.LanguageFilter), false, nil
}

func filterRecognized(paths []string) []string {
	var out []string
	for _, p := range paths {
		if _, ok := ir.LanguageForExtension(extOf(p)); ok {
			out = append(out, p)
		}
	}
	return out
}

func filterLanguages(paths []string, filter map[ir.Language]bool) []string {
	if len(filter) == 0 {
		return filterRecognized(paths)
	}
	var out []string
	for _, p := range paths {
		lang, ok := ir.LanguageForExtension(extOf(p))
		if !ok || !filter[lang] {
			continue
		}
		out = append(out, p)
	}
	return out
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}
