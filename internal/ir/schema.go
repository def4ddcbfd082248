// Package ir defines the language-neutral intermediate representation
// every parser frontend produces and the graph store persists: symbols,
// edges, occurrences, files, and commit snapshots.
package ir

// Language is the enumerated set of source languages a frontend may tag a
// symbol or file with.
type Language string

const (
	LangTypeScript Language = "TypeScript"
	LangJavaScript Language = "JavaScript"
	LangPython     Language = "Python"
	LangGo         Language = "Go"
	LangRust       Language = "Rust"
	LangJava       Language = "Java"
	LangC          Language = "C"
	LangCPP        Language = "C++"
	LangUnknown    Language = ""
)

// extensionLanguage is the recommended default extension-to-language map
// (§6.1). Unknown extensions are skipped, not errors.
var extensionLanguage = map[string]Language{
	".ts":  LangTypeScript,
	".tsx": LangTypeScript,
	".js":  LangJavaScript,
	".jsx": LangJavaScript,
	".mjs": LangJavaScript,
	".py":  LangPython,
	".go":  LangGo,
	".rs":  LangRust,
	".java": LangJava,
	".cpp": LangCPP,
	".cc":  LangCPP,
	".cxx": LangCPP,
	".hpp": LangCPP,
	".hh":  LangCPP,
	".hxx": LangCPP,
	".c":   LangC,
	".h":   LangC,
}

// LanguageForExtension returns the language mapped to ext (including the
// leading dot) and whether the extension is recognized.
func LanguageForExtension(ext string) (Language, bool) {
	lang, ok := extensionLanguage[ext]
	return lang, ok
}

// SymbolKind is the enumerated set of symbol kinds a frontend may emit.
type SymbolKind string

const (
	KindFunction  SymbolKind = "Function"
	KindMethod    SymbolKind = "Method"
	KindClass     SymbolKind = "Class"
	KindStruct    SymbolKind = "Struct"
	KindInterface SymbolKind = "Interface"
	KindTrait     SymbolKind = "Trait"
	KindEnum      SymbolKind = "Enum"
	KindEnumMember SymbolKind = "EnumMember"
	KindField     SymbolKind = "Field"
	KindVariable  SymbolKind = "Variable"
	KindConstant  SymbolKind = "Constant"
	KindType      SymbolKind = "Type"
	KindModule    SymbolKind = "Module"
	KindNamespace SymbolKind = "Namespace"
)

// EdgeType is the enumerated set of directed relationship types.
type EdgeType string

const (
	EdgeCalls     EdgeType = "Calls"
	EdgeImports   EdgeType = "Imports"
	EdgeContains  EdgeType = "Contains"
	EdgeExtends   EdgeType = "Extends"
	EdgeImplements EdgeType = "Implements"
	EdgeReads     EdgeType = "Reads"
	EdgeWrites    EdgeType = "Writes"
)

// Resolution distinguishes edges derived from parsing alone from edges
// resolved by a type-aware indexer.
type Resolution string

const (
	ResolutionSyntactic Resolution = "Syntactic"
	ResolutionSemantic  Resolution = "Semantic"
)

// OccurrenceRole is the enumerated set of lexical-occurrence roles.
type OccurrenceRole string

const (
	RoleDefinition OccurrenceRole = "Definition"
	RoleReference  OccurrenceRole = "Reference"
	RoleCall       OccurrenceRole = "Call"
	RoleWrite      OccurrenceRole = "Write"
)

// Span is a zero-based, half-open text range.
type Span struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Valid reports whether the span's start does not lexicographically
// exceed its end. A zero-width span (start equal to end) is valid; an
// inverted span is not. The Python frontend and the scan orchestrator do
// not store a symbol or occurrence whose span is not valid.
func (s Span) Valid() bool {
	if s.StartLine != s.EndLine {
		return s.StartLine < s.EndLine
	}
	return s.StartCol <= s.EndCol
}

// Symbol is a named program element.
type Symbol struct {
	ID            string
	Language      Language
	Kind          SymbolKind
	Name          string
	FQN           string
	Signature     string
	FilePath      string
	Span          Span
	Visibility    string // "public" | "protected" | "private" | "package" | ""
	Doc           string
	SigHash       string
}

// Edge is a directed relationship between two symbols, two files, or a
// symbol and a file. Source/destination are plain strings rather than
// foreign keys: an edge may name a symbol id that does not exist in the
// snapshot (an unresolved reference).
type Edge struct {
	Type       EdgeType
	Source     string // symbol id, or empty
	Dest       string // symbol id, or empty
	FileSrc    string // set for file-level edges (e.g. Imports)
	FileDst    string
	Resolution Resolution
	Meta       map[string]interface{}
	Provenance map[string]string
}

// Occurrence is a lexical appearance of an identifier.
type Occurrence struct {
	FilePath string
	SymbolID string // empty means unresolved
	Role     OccurrenceRole
	Span     Span
	Token    string
}

// File is tracked content at a commit.
type File struct {
	CommitID    int64
	Path        string
	Language    Language
	ContentHash string
	SizeBytes   int64
}

// CommitSnapshot is the version anchor all records belong to.
type CommitSnapshot struct {
	ID            int64
	Revision      string
	CreatedAt     string
	FilesIndexed  int
	SymbolsFound  int
}

// IRTriple is what a parser frontend returns for one file: the tuple the
// orchestrator inserts under one commit.
type IRTriple struct {
	Symbols     []Symbol
	Edges       []Edge
	Occurrences []Occurrence
}
