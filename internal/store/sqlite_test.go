package store

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewbot/codegraph/internal/ir"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dbPath := filepath.Join(t.TempDir(), "graph.db")
	st, err := NewSQLiteStore(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleSymbol(id, name, fqn, filePath string) ir.Symbol {
	return ir.Symbol{
		ID:        id,
		Language:  ir.LangPython,
		Kind:      ir.KindFunction,
		Name:      name,
		FQN:       fqn,
		Signature: "def " + name + "()",
		FilePath:  filePath,
		Span:      ir.Span{StartLine: 1, EndLine: 2},
		SigHash:   "hash-" + id,
	}
}

func TestSQLiteStore_CommitUpsertIsIdempotent(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	id1, err := st.GetOrCreateCommit(ctx, "rev1")
	require.NoError(t, err)
	id2, err := st.GetOrCreateCommit(ctx, "rev1")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	id3, err := st.GetOrCreateCommit(ctx, "rev2")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestSQLiteStore_LatestCommitEmptyIsNotFound(t *testing.T) {
	st := newTestSQLite(t)
	_, err := st.LatestCommit(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_InsertAndFindSymbolByFQN(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	commitID, err := st.GetOrCreateCommit(ctx, "rev1")
	require.NoError(t, err)

	sym := sampleSymbol("id-1", "foo", "pkg.foo", "pkg/foo.py")
	require.NoError(t, st.InsertSymbol(ctx, commitID, sym))

	found, err := st.FindSymbolByFQN(ctx, "pkg.foo")
	require.NoError(t, err)
	assert.Equal(t, sym.ID, found.ID)
	assert.Equal(t, sym.Name, found.Name)

	_, err = st.FindSymbolByFQN(ctx, "pkg.missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_GetCallersAndCalleesFollowCalls(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	commitID, err := st.GetOrCreateCommit(ctx, "rev1")
	require.NoError(t, err)

	a := sampleSymbol("a", "a", "a", "x.py")
	b := sampleSymbol("b", "b", "b", "x.py")
	c := sampleSymbol("c", "c", "c", "x.py")
	for _, s := range []ir.Symbol{a, b, c} {
		require.NoError(t, st.InsertSymbol(ctx, commitID, s))
	}
	// a -> b -> c
	require.NoError(t, st.InsertEdge(ctx, commitID, ir.Edge{Type: ir.EdgeCalls, Source: "a", Dest: "b", Resolution: ir.ResolutionSyntactic}))
	require.NoError(t, st.InsertEdge(ctx, commitID, ir.Edge{Type: ir.EdgeCalls, Source: "b", Dest: "c", Resolution: ir.ResolutionSyntactic}))

	callees, err := st.GetCallees(ctx, "a", 1)
	require.NoError(t, err)
	assert.Len(t, callees, 1)
	assert.Equal(t, "b", callees[0].ID)

	calleesDeep, err := st.GetCallees(ctx, "a", 2)
	require.NoError(t, err)
	assert.Len(t, calleesDeep, 2)

	callers, err := st.GetCallers(ctx, "c", 2)
	require.NoError(t, err)
	assert.Len(t, callers, 2)

	none, err := st.GetCallees(ctx, "a", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func ids(symbols []ir.Symbol) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = s.ID
	}
	return out
}

func TestSQLiteStore_GetCalleesToleratesCyclesAndExcludesRoot(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	commitID, err := st.GetOrCreateCommit(ctx, "rev1")
	require.NoError(t, err)

	for _, s := range []ir.Symbol{sampleSymbol("a", "a", "a", "x.py"), sampleSymbol("b", "b", "b", "x.py")} {
		require.NoError(t, st.InsertSymbol(ctx, commitID, s))
	}
	require.NoError(t, st.InsertEdge(ctx, commitID, ir.Edge{Type: ir.EdgeCalls, Source: "a", Dest: "b", Resolution: ir.ResolutionSyntactic}))
	require.NoError(t, st.InsertEdge(ctx, commitID, ir.Edge{Type: ir.EdgeCalls, Source: "b", Dest: "a", Resolution: ir.ResolutionSyntactic}))

	callees, err := st.GetCallees(ctx, "a", 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b"}, ids(callees), "the cycle routes back to a, which must never appear in its own callee set")

	callers, err := st.GetCallers(ctx, "a", 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b"}, ids(callers), "the cycle routes back to a, which must never appear in its own caller set")
}

func TestSQLiteStore_GetCalleesAndCallersExcludeSelfLoop(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	commitID, err := st.GetOrCreateCommit(ctx, "rev1")
	require.NoError(t, err)

	require.NoError(t, st.InsertSymbol(ctx, commitID, sampleSymbol("a", "a", "a", "x.py")))
	require.NoError(t, st.InsertEdge(ctx, commitID, ir.Edge{Type: ir.EdgeCalls, Source: "a", Dest: "a", Resolution: ir.ResolutionSyntactic}))

	callees, err := st.GetCallees(ctx, "a", 5)
	require.NoError(t, err)
	assert.Empty(t, callees, "a self-loop must never return the queried symbol as its own callee")

	callers, err := st.GetCallers(ctx, "a", 5)
	require.NoError(t, err)
	assert.Empty(t, callers, "a self-loop must never return the queried symbol as its own caller")
}

func TestSQLiteStore_SearchSymbolsRanksExactThenPrefixThenSubstring(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	commitID, err := st.GetOrCreateCommit(ctx, "rev1")
	require.NoError(t, err)

	symbols := []ir.Symbol{
		sampleSymbol("1", "run", "pkg.run", "x.py"),
		sampleSymbol("2", "runner", "pkg.runner", "x.py"),
		sampleSymbol("3", "test_run_once", "pkg.test_run_once", "x.py"),
	}
	for _, s := range symbols {
		require.NoError(t, st.InsertSymbol(ctx, commitID, s))
	}

	results, err := st.SearchSymbols(ctx, "run", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "run", results[0].Name, "exact match ranks first")
	assert.Equal(t, "runner", results[1].Name, "prefix match ranks second")
	assert.Equal(t, "test_run_once", results[2].Name, "substring-only match ranks last")
}

func TestSQLiteStore_SearchSymbolsRespectsLimit(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	commitID, err := st.GetOrCreateCommit(ctx, "rev1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		name := string(rune('a' + i))
		require.NoError(t, st.InsertSymbol(ctx, commitID, sampleSymbol(name, name, name, "x.py")))
	}

	results, err := st.SearchSymbols(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSQLiteStore_GetFileDependentsFollowsImports(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	commitID, err := st.GetOrCreateCommit(ctx, "rev1")
	require.NoError(t, err)

	require.NoError(t, st.InsertEdge(ctx, commitID, ir.Edge{
		Type: ir.EdgeImports, FileSrc: "a.py", FileDst: "b.py", Resolution: ir.ResolutionSyntactic,
	}))
	require.NoError(t, st.InsertEdge(ctx, commitID, ir.Edge{
		Type: ir.EdgeImports, FileSrc: "c.py", FileDst: "b.py", Resolution: ir.ResolutionSyntactic,
	}))

	deps, err := st.GetFileDependents(ctx, "b.py")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.py", "c.py"}, deps)

	noDeps, err := st.GetFileDependents(ctx, "z.py")
	require.NoError(t, err)
	assert.Empty(t, noDeps)
}

func TestSQLiteStore_DeleteFileDataIsAtomicPerCommitAndPath(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	commitID, err := st.GetOrCreateCommit(ctx, "rev1")
	require.NoError(t, err)

	sym := sampleSymbol("a", "a", "a", "target.py")
	require.NoError(t, st.InsertSymbol(ctx, commitID, sym))
	require.NoError(t, st.InsertFile(ctx, commitID, "target.py", "hash1", 10))
	require.NoError(t, st.InsertOccurrence(ctx, commitID, ir.Occurrence{FilePath: "target.py", SymbolID: "a", Role: ir.RoleDefinition, Span: ir.Span{EndLine: 1}, Token: "a"}))
	require.NoError(t, st.InsertEdge(ctx, commitID, ir.Edge{Type: ir.EdgeImports, FileSrc: "target.py", FileDst: "other.py", Resolution: ir.ResolutionSyntactic}))

	require.NoError(t, st.DeleteFileData(ctx, commitID, "target.py"))

	_, err = st.FindSymbolByFQN(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	deps, err := st.GetFileDependents(ctx, "other.py")
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestSQLiteStore_LoadCommitGraphScopesToOneCommit(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	commit1, err := st.GetOrCreateCommit(ctx, "rev1")
	require.NoError(t, err)
	commit2, err := st.GetOrCreateCommit(ctx, "rev2")
	require.NoError(t, err)

	require.NoError(t, st.InsertSymbol(ctx, commit1, sampleSymbol("a1", "a", "a", "x.py")))
	require.NoError(t, st.InsertSymbol(ctx, commit2, sampleSymbol("a2", "a", "a", "x.py")))
	require.NoError(t, st.InsertEdge(ctx, commit1, ir.Edge{Type: ir.EdgeCalls, Source: "a1", Dest: "missing", Resolution: ir.ResolutionSyntactic}))

	symbols, edges, err := st.LoadCommitGraph(ctx, commit1)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "a1", symbols[0].ID)
	require.Len(t, edges, 1)
	assert.Equal(t, "a1", edges[0].Source)
}

func TestSQLiteStore_UpdateCommitCounters(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	commitID, err := st.GetOrCreateCommit(ctx, "rev1")
	require.NoError(t, err)

	require.NoError(t, st.UpdateCommitCounters(ctx, commitID, 3, 7))

	commit, err := st.GetCommit(ctx, "rev1")
	require.NoError(t, err)
	assert.Equal(t, 3, commit.FilesIndexed)
	assert.Equal(t, 7, commit.SymbolsFound)
}
