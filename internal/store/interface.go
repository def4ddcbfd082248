// Package store persists the IR (symbols, edges, occurrences, files)
// under commit snapshots and answers indexed and recursive-CTE queries
// over them. Two backends are provided: SQLite (the default, single-file
// store under .reviewbot/graph.db) and Postgres (for multi-reader
// deployments); both implement the same Store interface.
package store

import (
	"context"
	"errors"

	"github.com/reviewbot/codegraph/internal/ir"
)

// ErrNotFound is returned by lookups that find nothing. Per spec §7 this
// is not a failure condition; callers treat it as the empty/null sentinel.
var ErrNotFound = errors.New("not found")

// Store is the single-writer, multi-reader persistent graph store (C3).
type Store interface {
	// GetOrCreateCommit is an idempotent upsert: the same revision string
	// always resolves to the same commit id.
	GetOrCreateCommit(ctx context.Context, revision string) (int64, error)
	// GetCommit returns the commit snapshot by revision, or ErrNotFound.
	GetCommit(ctx context.Context, revision string) (*ir.CommitSnapshot, error)
	// LatestCommit returns the highest-id commit snapshot, or ErrNotFound
	// if the store is empty.
	LatestCommit(ctx context.Context) (*ir.CommitSnapshot, error)
	// UpdateCommitCounters sets files_indexed/symbols_found on a commit
	// snapshot, called once a scan completes.
	UpdateCommitCounters(ctx context.Context, commitID int64, filesIndexed, symbolsFound int) error

	// InsertFile upserts a file row by (commit_id, path), inferring
	// language from the path's extension.
	InsertFile(ctx context.Context, commitID int64, path string, contentHash string, sizeBytes int64) error
	// InsertSymbol upserts a symbol row by (commit_id, symbol.ID).
	InsertSymbol(ctx context.Context, commitID int64, sym ir.Symbol) error
	// InsertEdge upserts an edge row by its composite uniqueness key.
	InsertEdge(ctx context.Context, commitID int64, edge ir.Edge) error
	// InsertOccurrence is a pure insert; occurrences carry no uniqueness
	// constraint.
	InsertOccurrence(ctx context.Context, commitID int64, occ ir.Occurrence) error
	// DeleteFileData retires, in one logical unit, all symbol, occurrence,
	// and file rows for (commitID, path), and all edge rows whose
	// file_src or file_dst equals path. Used only during incremental scans.
	DeleteFileData(ctx context.Context, commitID int64, path string) error

	// FindSymbolByFQN returns the row from the most recent commit
	// snapshot carrying that fqn, or ErrNotFound. Ties broken by highest
	// row id.
	FindSymbolByFQN(ctx context.Context, fqn string) (*ir.Symbol, error)
	// GetCallers returns symbols that call symbolID, recursively up to
	// depth edges, via the Calls edge type. depth=0 returns empty. Not
	// scoped to a commit: a symbol id already encodes the commit revision
	// it was minted under (§3.3), so the traversal naturally stays within
	// one commit's data.
	GetCallers(ctx context.Context, symbolID string, depth int) ([]ir.Symbol, error)
	// GetCallees returns symbols symbolID calls, recursively up to depth
	// edges.
	GetCallees(ctx context.Context, symbolID string, depth int) ([]ir.Symbol, error)
	// SearchSymbols returns up to k symbols whose name or fqn contains
	// query as a substring, ranked exact > prefix > other, each group by
	// ascending name length. An empty query matches all symbols.
	SearchSymbols(ctx context.Context, query string, k int) ([]ir.Symbol, error)
	// GetFileDependents returns the distinct file_src values of Imports
	// edges whose file_dst equals path.
	GetFileDependents(ctx context.Context, path string) ([]string, error)
	// LoadCommitGraph returns every symbol and edge row under commitID, the
	// raw material graphmem.BuildFromData assembles into an in-memory
	// overlay (§4.4): built on demand from a selected commit's rows.
	LoadCommitGraph(ctx context.Context, commitID int64) ([]ir.Symbol, []ir.Edge, error)

	// Close releases the underlying connection(s).
	Close() error
}
