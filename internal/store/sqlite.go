package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/reviewbot/codegraph/internal/ir"
)

// SQLiteStore implements Store using SQLite — the default backend, a
// single file under .reviewbot/graph.db.
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore opens (creating if absent) the SQLite database at path
// and initializes its schema. WAL journaling and synchronous=NORMAL match
// spec §4.3.1's engine-configuration requirement.
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS commit_snapshot (
	id INTEGER PRIMARY KEY,
	revision TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	files_indexed INTEGER DEFAULT 0,
	symbols_found INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS file (
	id INTEGER PRIMARY KEY,
	commit_id INTEGER NOT NULL,
	path TEXT NOT NULL,
	language TEXT,
	content_hash TEXT NOT NULL,
	size_bytes INTEGER,
	UNIQUE(commit_id, path)
);

CREATE TABLE IF NOT EXISTS symbol (
	id INTEGER PRIMARY KEY,
	commit_id INTEGER NOT NULL,
	symbol_id TEXT NOT NULL,
	language TEXT NOT NULL,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	fqn TEXT NOT NULL,
	signature TEXT,
	file_path TEXT NOT NULL,
	span_start_line INTEGER NOT NULL,
	span_start_col INTEGER NOT NULL,
	span_end_line INTEGER NOT NULL,
	span_end_col INTEGER NOT NULL,
	visibility TEXT,
	doc TEXT,
	sig_hash TEXT NOT NULL,
	UNIQUE(commit_id, symbol_id)
);

CREATE TABLE IF NOT EXISTS edge (
	id INTEGER PRIMARY KEY,
	commit_id INTEGER NOT NULL,
	edge_type TEXT NOT NULL,
	src_symbol TEXT,
	dst_symbol TEXT,
	file_src TEXT,
	file_dst TEXT,
	resolution TEXT NOT NULL,
	meta_json TEXT,
	provenance_json TEXT,
	UNIQUE(commit_id, edge_type, src_symbol, dst_symbol, file_src, file_dst)
);

CREATE TABLE IF NOT EXISTS occurrence (
	id INTEGER PRIMARY KEY,
	commit_id INTEGER NOT NULL,
	file_path TEXT NOT NULL,
	symbol_id TEXT,
	role TEXT NOT NULL,
	span_start_line INTEGER NOT NULL,
	span_start_col INTEGER NOT NULL,
	span_end_line INTEGER NOT NULL,
	span_end_col INTEGER NOT NULL,
	token TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_symbol_fqn ON symbol(fqn);
CREATE INDEX IF NOT EXISTS idx_symbol_commit_fqn ON symbol(commit_id, fqn);
CREATE INDEX IF NOT EXISTS idx_edge_src ON edge(src_symbol);
CREATE INDEX IF NOT EXISTS idx_edge_dst ON edge(dst_symbol);
CREATE INDEX IF NOT EXISTS idx_edge_type ON edge(edge_type);
CREATE INDEX IF NOT EXISTS idx_edge_resolution ON edge(resolution);
CREATE INDEX IF NOT EXISTS idx_occurrence_file ON occurrence(file_path);
CREATE INDEX IF NOT EXISTS idx_occurrence_symbol ON occurrence(symbol_id);
`

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(schemaDDL)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetOrCreateCommit(ctx context.Context, revision string) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `SELECT id FROM commit_snapshot WHERE revision = ?`, revision)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO commit_snapshot (revision) VALUES (?)`, revision)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type commitRow struct {
	ID           int64  `db:"id"`
	Revision     string `db:"revision"`
	CreatedAt    string `db:"created_at"`
	FilesIndexed int    `db:"files_indexed"`
	SymbolsFound int    `db:"symbols_found"`
}

func (r commitRow) toIR() *ir.CommitSnapshot {
	return &ir.CommitSnapshot{
		ID:           r.ID,
		Revision:     r.Revision,
		CreatedAt:    r.CreatedAt,
		FilesIndexed: r.FilesIndexed,
		SymbolsFound: r.SymbolsFound,
	}
}

func (s *SQLiteStore) GetCommit(ctx context.Context, revision string) (*ir.CommitSnapshot, error) {
	var row commitRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM commit_snapshot WHERE revision = ?`, revision)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toIR(), nil
}

func (s *SQLiteStore) LatestCommit(ctx context.Context) (*ir.CommitSnapshot, error) {
	var row commitRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM commit_snapshot ORDER BY id DESC LIMIT 1`)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toIR(), nil
}

func (s *SQLiteStore) UpdateCommitCounters(ctx context.Context, commitID int64, filesIndexed, symbolsFound int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE commit_snapshot SET files_indexed = ?, symbols_found = ? WHERE id = ?`,
		filesIndexed, symbolsFound, commitID)
	return err
}

func (s *SQLiteStore) InsertFile(ctx context.Context, commitID int64, path string, contentHash string, sizeBytes int64) error {
	lang, _ := ir.LanguageForExtension(extOf(path))
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO file (commit_id, path, language, content_hash, size_bytes) VALUES (?, ?, ?, ?, ?)`,
		commitID, path, string(lang), contentHash, sizeBytes)
	return err
}

func extOf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i:]
	}
	return ""
}

func (s *SQLiteStore) InsertSymbol(ctx context.Context, commitID int64, sym ir.Symbol) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO symbol (
			commit_id, symbol_id, language, kind, name, fqn, signature,
			file_path, span_start_line, span_start_col, span_end_line,
			span_end_col, visibility, doc, sig_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		commitID, sym.ID, string(sym.Language), string(sym.Kind), sym.Name, sym.FQN, sym.Signature,
		sym.FilePath, sym.Span.StartLine, sym.Span.StartCol, sym.Span.EndLine,
		sym.Span.EndCol, sym.Visibility, sym.Doc, sym.SigHash)
	return err
}

func (s *SQLiteStore) InsertEdge(ctx context.Context, commitID int64, edge ir.Edge) error {
	metaJSON, err := json.Marshal(edge.Meta)
	if err != nil {
		return err
	}
	provJSON, err := json.Marshal(edge.Provenance)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO edge (
			commit_id, edge_type, src_symbol, dst_symbol,
			file_src, file_dst, resolution, meta_json, provenance_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		commitID, string(edge.Type), nullableStr(edge.Source), nullableStr(edge.Dest),
		nullableStr(edge.FileSrc), nullableStr(edge.FileDst), string(edge.Resolution), string(metaJSON), string(provJSON))
	return err
}

// nullableStr maps an empty string to SQL NULL so that the composite
// UNIQUE constraint on edge treats two edges with a blank symbol endpoint
// the same way SQLite treats NULL-vs-NULL (not equal) rather than
// empty-string-vs-empty-string (equal), matching the "endpoint may be
// null" semantics of spec §3.2.
func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (s *SQLiteStore) InsertOccurrence(ctx context.Context, commitID int64, occ ir.Occurrence) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO occurrence (
			commit_id, file_path, symbol_id, role,
			span_start_line, span_start_col, span_end_line, span_end_col, token
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		commitID, occ.FilePath, nullableStr(occ.SymbolID), string(occ.Role),
		occ.Span.StartLine, occ.Span.StartCol, occ.Span.EndLine, occ.Span.EndCol, occ.Token)
	return err
}

func (s *SQLiteStore) DeleteFileData(ctx context.Context, commitID int64, path string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbol WHERE commit_id = ? AND file_path = ?`, commitID, path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM edge WHERE commit_id = ? AND (file_src = ? OR file_dst = ?)`, commitID, path, path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM occurrence WHERE commit_id = ? AND file_path = ?`, commitID, path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM file WHERE commit_id = ? AND path = ?`, commitID, path); err != nil {
		return err
	}
	return tx.Commit()
}

type symbolRow struct {
	SymbolID   string `db:"symbol_id"`
	Language   string `db:"language"`
	Kind       string `db:"kind"`
	Name       string `db:"name"`
	FQN        string `db:"fqn"`
	Signature  sql.NullString `db:"signature"`
	FilePath   string `db:"file_path"`
	StartLine  int    `db:"span_start_line"`
	StartCol   int    `db:"span_start_col"`
	EndLine    int    `db:"span_end_line"`
	EndCol     int    `db:"span_end_col"`
	Visibility sql.NullString `db:"visibility"`
	Doc        sql.NullString `db:"doc"`
	SigHash    string `db:"sig_hash"`
}

func (r symbolRow) toIR() ir.Symbol {
	return ir.Symbol{
		ID:         r.SymbolID,
		Language:   ir.Language(r.Language),
		Kind:       ir.SymbolKind(r.Kind),
		Name:       r.Name,
		FQN:        r.FQN,
		Signature:  r.Signature.String,
		FilePath:   r.FilePath,
		Span:       ir.Span{StartLine: r.StartLine, StartCol: r.StartCol, EndLine: r.EndLine, EndCol: r.EndCol},
		Visibility: r.Visibility.String,
		Doc:        r.Doc.String,
		SigHash:    r.SigHash,
	}
}

const symbolColumns = `symbol_id, language, kind, name, fqn, signature, file_path,
	span_start_line, span_start_col, span_end_line, span_end_col,
	visibility, doc, sig_hash`

func (s *SQLiteStore) FindSymbolByFQN(ctx context.Context, fqn string) (*ir.Symbol, error) {
	var row symbolRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+symbolColumns+`
		FROM symbol
		WHERE fqn = ?
		ORDER BY commit_id DESC, id DESC
		LIMIT 1`, fqn)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sym := row.toIR()
	return &sym, nil
}

// GetCallers follows edge.dst_symbol = symbolID back through src_symbol,
// recursively, via a recursive CTE over (symbol_id, depth) rows joined
// with UNION (not UNION ALL). UNION drops only duplicate pairs, so a
// symbol on a cycle is reached again at each greater depth; the depth
// bound ends the recursion, and the final SELECT over symbol returns each
// row once. The final filter excludes symbolID itself: a cycle (including a bare
// self-loop) can otherwise route back to the root and reintroduce it as
// its own caller, which spec §8 forbids.
func (s *SQLiteStore) GetCallers(ctx context.Context, symbolID string, depth int) ([]ir.Symbol, error) {
	if depth <= 0 {
		return nil, nil
	}
	query := `
		WITH RECURSIVE callers(symbol_id, depth) AS (
			SELECT e.src_symbol, 0
			FROM edge e
			WHERE e.dst_symbol = ? AND e.edge_type = 'Calls' AND e.src_symbol IS NOT NULL

			UNION

			SELECT e.src_symbol, c.depth + 1
			FROM edge e
			JOIN callers c ON c.symbol_id = e.dst_symbol
			WHERE e.edge_type = 'Calls' AND c.depth < ? - 1 AND e.src_symbol IS NOT NULL
		)
		SELECT ` + symbolColumns + `
		FROM symbol
		WHERE symbol_id IN (SELECT symbol_id FROM callers) AND symbol_id != ?`
	return s.querySymbols(ctx, query, symbolID, depth, symbolID)
}

// GetCallees mirrors GetCallers over outgoing Calls edges, with the same
// exclusion of symbolID itself from the result.
func (s *SQLiteStore) GetCallees(ctx context.Context, symbolID string, depth int) ([]ir.Symbol, error) {
	if depth <= 0 {
		return nil, nil
	}
	query := `
		WITH RECURSIVE callees(symbol_id, depth) AS (
			SELECT e.dst_symbol, 0
			FROM edge e
			WHERE e.src_symbol = ? AND e.edge_type = 'Calls' AND e.dst_symbol IS NOT NULL

			UNION

			SELECT e.dst_symbol, c.depth + 1
			FROM edge e
			JOIN callees c ON c.symbol_id = e.src_symbol
			WHERE e.edge_type = 'Calls' AND c.depth < ? - 1 AND e.dst_symbol IS NOT NULL
		)
		SELECT ` + symbolColumns + `
		FROM symbol
		WHERE symbol_id IN (SELECT symbol_id FROM callees) AND symbol_id != ?`
	return s.querySymbols(ctx, query, symbolID, depth, symbolID)
}

func (s *SQLiteStore) querySymbols(ctx context.Context, query string, args ...interface{}) ([]ir.Symbol, error) {
	var rows []symbolRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]ir.Symbol, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toIR())
	}
	return out, nil
}

func (s *SQLiteStore) SearchSymbols(ctx context.Context, query string, k int) ([]ir.Symbol, error) {
	pattern := "%" + query + "%"
	prefix := query + "%"
	sqlQuery := `
		SELECT ` + symbolColumns + `
		FROM symbol
		WHERE name LIKE ? OR fqn LIKE ?
		ORDER BY
			CASE WHEN name = ? THEN 0
			     WHEN name LIKE ? THEN 1
			     ELSE 2 END,
			length(name)
		LIMIT ?`
	return s.querySymbols(ctx, sqlQuery, pattern, pattern, query, prefix, k)
}

func (s *SQLiteStore) GetFileDependents(ctx context.Context, path string) ([]string, error) {
	var deps []string
	err := s.db.SelectContext(ctx, &deps,
		`SELECT DISTINCT file_src FROM edge WHERE file_dst = ? AND edge_type = 'Imports' AND file_src IS NOT NULL`, path)
	if err != nil {
		return nil, err
	}
	return deps, nil
}

type edgeRow struct {
	EdgeType  string         `db:"edge_type"`
	SrcSymbol sql.NullString `db:"src_symbol"`
	DstSymbol sql.NullString `db:"dst_symbol"`
	FileSrc   sql.NullString `db:"file_src"`
	FileDst   sql.NullString `db:"file_dst"`
	Resolution string        `db:"resolution"`
}

func (r edgeRow) toIR() ir.Edge {
	return ir.Edge{
		Type:       ir.EdgeType(r.EdgeType),
		Source:     r.SrcSymbol.String,
		Dest:       r.DstSymbol.String,
		FileSrc:    r.FileSrc.String,
		FileDst:    r.FileDst.String,
		Resolution: ir.Resolution(r.Resolution),
	}
}

func (s *SQLiteStore) LoadCommitGraph(ctx context.Context, commitID int64) ([]ir.Symbol, []ir.Edge, error) {
	var symRows []symbolRow
	if err := s.db.SelectContext(ctx, &symRows, `SELECT `+symbolColumns+` FROM symbol WHERE commit_id = ?`, commitID); err != nil {
		return nil, nil, err
	}
	symbols := make([]ir.Symbol, 0, len(symRows))
	for _, r := range symRows {
		symbols = append(symbols, r.toIR())
	}

	var edgeRows []edgeRow
	if err := s.db.SelectContext(ctx, &edgeRows,
		`SELECT edge_type, src_symbol, dst_symbol, file_src, file_dst, resolution FROM edge WHERE commit_id = ?`, commitID); err != nil {
		return nil, nil, err
	}
	edges := make([]ir.Edge, 0, len(edgeRows))
	for _, r := range edgeRows {
		edges = append(edges, r.toIR())
	}

	return symbols, edges, nil
}
