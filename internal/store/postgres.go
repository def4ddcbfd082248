package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/reviewbot/codegraph/internal/ir"
)

// PostgresStore implements Store using PostgreSQL, for deployments with
// more than one reader against the same graph.
type PostgresStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPostgresStore connects to dsn and initializes the schema.
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &PostgresStore{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

const postgresSchemaDDL = `
CREATE TABLE IF NOT EXISTS commit_snapshot (
	id BIGSERIAL PRIMARY KEY,
	revision TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ DEFAULT now(),
	files_indexed INTEGER DEFAULT 0,
	symbols_found INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS file (
	id BIGSERIAL PRIMARY KEY,
	commit_id BIGINT NOT NULL,
	path TEXT NOT NULL,
	language TEXT,
	content_hash TEXT NOT NULL,
	size_bytes BIGINT,
	UNIQUE(commit_id, path)
);

CREATE TABLE IF NOT EXISTS symbol (
	id BIGSERIAL PRIMARY KEY,
	commit_id BIGINT NOT NULL,
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
	id BIGSERIAL PRIMARY KEY,
	commit_id BIGINT NOT NULL,
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
	id BIGSERIAL PRIMARY KEY,
	commit_id BIGINT NOT NULL,
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

func (s *PostgresStore) initSchema() error {
	_, err := s.db.Exec(postgresSchemaDDL)
	return err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) GetOrCreateCommit(ctx context.Context, revision string) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `SELECT id FROM commit_snapshot WHERE revision = $1`, revision)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	err = s.db.GetContext(ctx, &id, `
		INSERT INTO commit_snapshot (revision) VALUES ($1)
		ON CONFLICT (revision) DO UPDATE SET revision = EXCLUDED.revision
		RETURNING id`, revision)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *PostgresStore) GetCommit(ctx context.Context, revision string) (*ir.CommitSnapshot, error) {
	var row commitRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM commit_snapshot WHERE revision = $1`, revision)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toIR(), nil
}

func (s *PostgresStore) LatestCommit(ctx context.Context) (*ir.CommitSnapshot, error) {
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

func (s *PostgresStore) UpdateCommitCounters(ctx context.Context, commitID int64, filesIndexed, symbolsFound int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE commit_snapshot SET files_indexed = $1, symbols_found = $2 WHERE id = $3`,
		filesIndexed, symbolsFound, commitID)
	return err
}

func (s *PostgresStore) InsertFile(ctx context.Context, commitID int64, path string, contentHash string, sizeBytes int64) error {
	lang, _ := ir.LanguageForExtension(extOf(path))
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file (commit_id, path, language, content_hash, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (commit_id, path) DO UPDATE SET
			language = EXCLUDED.language,
			content_hash = EXCLUDED.content_hash,
			size_bytes = EXCLUDED.size_bytes`,
		commitID, path, string(lang), contentHash, sizeBytes)
	return err
}

func (s *PostgresStore) InsertSymbol(ctx context.Context, commitID int64, sym ir.Symbol) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO symbol (
			commit_id, symbol_id, language, kind, name, fqn, signature,
			file_path, span_start_line, span_start_col, span_end_line,
			span_end_col, visibility, doc, sig_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (commit_id, symbol_id) DO UPDATE SET
			language = EXCLUDED.language,
			kind = EXCLUDED.kind,
			name = EXCLUDED.name,
			fqn = EXCLUDED.fqn,
			signature = EXCLUDED.signature,
			file_path = EXCLUDED.file_path,
			span_start_line = EXCLUDED.span_start_line,
			span_start_col = EXCLUDED.span_start_col,
			span_end_line = EXCLUDED.span_end_line,
			span_end_col = EXCLUDED.span_end_col,
			visibility = EXCLUDED.visibility,
			doc = EXCLUDED.doc,
			sig_hash = EXCLUDED.sig_hash`,
		commitID, sym.ID, string(sym.Language), string(sym.Kind), sym.Name, sym.FQN, sym.Signature,
		sym.FilePath, sym.Span.StartLine, sym.Span.StartCol, sym.Span.EndLine,
		sym.Span.EndCol, sym.Visibility, sym.Doc, sym.SigHash)
	return err
}

func (s *PostgresStore) InsertEdge(ctx context.Context, commitID int64, edge ir.Edge) error {
	metaJSON, err := json.Marshal(edge.Meta)
	if err != nil {
		return err
	}
	provJSON, err := json.Marshal(edge.Provenance)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO edge (
			commit_id, edge_type, src_symbol, dst_symbol,
			file_src, file_dst, resolution, meta_json, provenance_json
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (commit_id, edge_type, src_symbol, dst_symbol, file_src, file_dst) DO UPDATE SET
			resolution = EXCLUDED.resolution,
			meta_json = EXCLUDED.meta_json,
			provenance_json = EXCLUDED.provenance_json`,
		commitID, string(edge.Type), nullableStr(edge.Source), nullableStr(edge.Dest),
		nullableStr(edge.FileSrc), nullableStr(edge.FileDst), string(edge.Resolution), string(metaJSON), string(provJSON))
	return err
}

func (s *PostgresStore) InsertOccurrence(ctx context.Context, commitID int64, occ ir.Occurrence) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO occurrence (
			commit_id, file_path, symbol_id, role,
			span_start_line, span_start_col, span_end_line, span_end_col, token
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		commitID, occ.FilePath, nullableStr(occ.SymbolID), string(occ.Role),
		occ.Span.StartLine, occ.Span.StartCol, occ.Span.EndLine, occ.Span.EndCol, occ.Token)
	return err
}

func (s *PostgresStore) DeleteFileData(ctx context.Context, commitID int64, path string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbol WHERE commit_id = $1 AND file_path = $2`, commitID, path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM edge WHERE commit_id = $1 AND (file_src = $2 OR file_dst = $2)`, commitID, path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM occurrence WHERE commit_id = $1 AND file_path = $2`, commitID, path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM file WHERE commit_id = $1 AND path = $2`, commitID, path); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) FindSymbolByFQN(ctx context.Context, fqn string) (*ir.Symbol, error) {
	var row symbolRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+symbolColumns+`
		FROM symbol
		WHERE fqn = $1
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

// GetCallers mirrors SQLiteStore.GetCallers: the final filter excludes
// symbolID itself, since a cycle (including a bare self-loop) can
// otherwise route back to the root and reintroduce it as its own caller,
// which spec §8 forbids.
func (s *PostgresStore) GetCallers(ctx context.Context, symbolID string, depth int) ([]ir.Symbol, error) {
	if depth <= 0 {
		return nil, nil
	}
	query := `
		WITH RECURSIVE callers(symbol_id, depth) AS (
			SELECT e.src_symbol, 0
			FROM edge e
			WHERE e.dst_symbol = $1 AND e.edge_type = 'Calls' AND e.src_symbol IS NOT NULL

			UNION

			SELECT e.src_symbol, c.depth + 1
			FROM edge e
			JOIN callers c ON c.symbol_id = e.dst_symbol
			WHERE e.edge_type = 'Calls' AND c.depth < $2 - 1 AND e.src_symbol IS NOT NULL
		)
		SELECT ` + symbolColumns + `
		FROM symbol
		WHERE symbol_id IN (SELECT symbol_id FROM callers) AND symbol_id != $3`
	return s.querySymbols(ctx, query, symbolID, depth, symbolID)
}

// GetCallees mirrors GetCallers over outgoing Calls edges, with the same
// exclusion of symbolID itself from the result.
func (s *PostgresStore) GetCallees(ctx context.Context, symbolID string, depth int) ([]ir.Symbol, error) {
	if depth <= 0 {
		return nil, nil
	}
	query := `
		WITH RECURSIVE callees(symbol_id, depth) AS (
			SELECT e.dst_symbol, 0
			FROM edge e
			WHERE e.src_symbol = $1 AND e.edge_type = 'Calls' AND e.dst_symbol IS NOT NULL

			UNION

			SELECT e.dst_symbol, c.depth + 1
			FROM edge e
			JOIN callees c ON c.symbol_id = e.src_symbol
			WHERE e.edge_type = 'Calls' AND c.depth < $2 - 1 AND e.dst_symbol IS NOT NULL
		)
		SELECT ` + symbolColumns + `
		FROM symbol
		WHERE symbol_id IN (SELECT symbol_id FROM callees) AND symbol_id != $3`
	return s.querySymbols(ctx, query, symbolID, depth, symbolID)
}

func (s *PostgresStore) querySymbols(ctx context.Context, query string, args ...interface{}) ([]ir.Symbol, error) {
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

func (s *PostgresStore) SearchSymbols(ctx context.Context, query string, k int) ([]ir.Symbol, error) {
	pattern := "%" + query + "%"
	prefix := query + "%"
	sqlQuery := `
		SELECT ` + symbolColumns + `
		FROM symbol
		WHERE name LIKE $1 OR fqn LIKE $1
		ORDER BY
			CASE WHEN name = $2 THEN 0
			     WHEN name LIKE $3 THEN 1
			     ELSE 2 END,
			length(name)
		LIMIT $4`
	return s.querySymbols(ctx, sqlQuery, pattern, query, prefix, k)
}

func (s *PostgresStore) GetFileDependents(ctx context.Context, path string) ([]string, error) {
	var deps []string
	err := s.db.SelectContext(ctx, &deps,
		`SELECT DISTINCT file_src FROM edge WHERE file_dst = $1 AND edge_type = 'Imports' AND file_src IS NOT NULL`, path)
	if err != nil {
		return nil, err
	}
	return deps, nil
}

func (s *PostgresStore) LoadCommitGraph(ctx context.Context, commitID int64) ([]ir.Symbol, []ir.Edge, error) {
	var symRows []symbolRow
	if err := s.db.SelectContext(ctx, &symRows, `SELECT `+symbolColumns+` FROM symbol WHERE commit_id = $1`, commitID); err != nil {
		return nil, nil, err
	}
	symbols := make([]ir.Symbol, 0, len(symRows))
	for _, r := range symRows {
		symbols = append(symbols, r.toIR())
	}

	var edgeRows []edgeRow
	if err := s.db.SelectContext(ctx, &edgeRows,
		`SELECT edge_type, src_symbol, dst_symbol, file_src, file_dst, resolution FROM edge WHERE commit_id = $1`, commitID); err != nil {
		return nil, nil, err
	}
	edges := make([]ir.Edge, 0, len(edgeRows))
	for _, r := range edgeRows {
		edges = append(edges, r.toIR())
	}

	return symbols, edges, nil
}
