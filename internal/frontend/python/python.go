// Package python implements the representative parser frontend (C2) for
// Python source, built on tree-sitter. It is the one frontend the core
// ships; no other language has a frontend in this repository.
package python

import (
	"fmt"
	"path"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/reviewbot/codegraph/internal/ir"
)

// Frontend parses Python source into IR triples.
type Frontend struct{}

// New returns a Python Frontend.
func New() *Frontend {
	return &Frontend{}
}

// funcDef records a definition discovered during the first walk pass, kept
// around so the second pass can resolve same-file calls to their symbol id.
type funcDef struct {
	symbol ir.Symbol
}

// Parse implements frontend.Frontend. It never panics: tree-sitter returns
// a best-effort tree even over malformed source, and a panic during the
// walk is recovered and returned as an error.
func (f *Frontend) Parse(filePath string, content []byte, commitRevision string) (triple ir.IRTriple, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("python: panic recovered parsing %s: %v", filePath, r)
		}
	}()

	parser := sitter.NewParser()
	if parser == nil {
		return ir.IRTriple{}, fmt.Errorf("python: failed to create tree-sitter parser")
	}
	defer parser.Close()

	lang := sitter.NewLanguage(tree_sitter_python.Language())
	if err := parser.SetLanguage(lang); err != nil {
		return ir.IRTriple{}, fmt.Errorf("python: set language: %w", err)
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return ir.IRTriple{}, fmt.Errorf("python: failed to parse %s", filePath)
	}
	defer tree.Close()

	w := &walker{
		path:       filePath,
		revision:   commitRevision,
		content:    content,
		byName:     make(map[string]funcDef),
	}
	w.collectDefinitions(tree.RootNode())
	w.collectCallsAndImports(tree.RootNode())

	return ir.IRTriple{
		Symbols:     w.symbols,
		Edges:       w.edges,
		Occurrences: w.occurrences,
	}, nil
}

type walker struct {
	path     string
	revision string
	content  []byte

	symbols     []ir.Symbol
	edges       []ir.Edge
	occurrences []ir.Occurrence

	byName map[string]funcDef // top-level/method name -> its definition, for same-file call resolution
}

func (w *walker) makeID(fqn, sigHash string) string {
	return ir.MakeSymbolID(w.revision, w.path, ir.LangPython, fqn, sigHash)
}

func nodeSpan(n *sitter.Node) ir.Span {
	start := n.StartPosition()
	end := n.EndPosition()
	return ir.Span{
		StartLine: int(start.Row),
		StartCol:  int(start.Column),
		EndLine:   int(end.Row),
		EndCol:    int(end.Column),
	}
}

func nodeText(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(content)
}

// collectDefinitions walks the tree once, emitting Class and
// Function/Method symbols plus Contains edges from class to method.
func (w *walker) collectDefinitions(root *sitter.Node) {
	var walk func(n *sitter.Node, enclosingClass *ir.Symbol)
	walk = func(n *sitter.Node, enclosingClass *ir.Symbol) {
		if n == nil {
			return
		}

		switch n.Kind() {
		case "class_definition":
			sym := w.emitClass(n)
			for i := uint(0); i < n.ChildCount(); i++ {
				walk(n.Child(i), &sym)
			}
			return

		case "function_definition":
			sym := w.emitFunction(n, enclosingClass)
			if enclosingClass != nil {
				w.edges = append(w.edges, ir.Edge{
					Type:       ir.EdgeContains,
					Source:     enclosingClass.ID,
					Dest:       sym.ID,
					Resolution: ir.ResolutionSyntactic,
				})
			}
			w.byName[sym.Name] = funcDef{symbol: sym}
			// Nested functions/classes still get discovered, but calls inside
			// a function body are resolved in the second pass.
			for i := uint(0); i < n.ChildCount(); i++ {
				walk(n.Child(i), enclosingClass)
			}
			return
		}

		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i), enclosingClass)
		}
	}
	walk(root, nil)
}

func (w *walker) emitClass(n *sitter.Node) ir.Symbol {
	nameNode := n.ChildByFieldName("name")
	name := nodeText(nameNode, w.content)

	var signature string
	if bases := n.ChildByFieldName("superclasses"); bases != nil {
		signature = fmt.Sprintf("class %s%s", name, nodeText(bases, w.content))
	} else {
		signature = fmt.Sprintf("class %s", name)
	}

	sigHash := ir.SigHash(signature, name)
	sym := ir.Symbol{
		ID:        w.makeID(name, sigHash),
		Language:  ir.LangPython,
		Kind:      ir.KindClass,
		Name:      name,
		FQN:       name,
		Signature: signature,
		FilePath:  w.path,
		Span:      nodeSpan(n),
		SigHash:   sigHash,
	}
	if !sym.Span.Valid() {
		return sym
	}
	w.symbols = append(w.symbols, sym)
	w.occurrences = append(w.occurrences, ir.Occurrence{
		FilePath: w.path,
		SymbolID: sym.ID,
		Role:     ir.RoleDefinition,
		Span:     nodeSpan(nameNode),
		Token:    name,
	})
	return sym
}

func (w *walker) emitFunction(n *sitter.Node, enclosingClass *ir.Symbol) ir.Symbol {
	nameNode := n.ChildByFieldName("name")
	name := nodeText(nameNode, w.content)

	params := nodeText(n.ChildByFieldName("parameters"), w.content)
	signature := fmt.Sprintf("def %s%s", name, params)
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		signature += " -> " + nodeText(ret, w.content)
	}

	fqn := name
	kind := ir.KindFunction
	if enclosingClass != nil {
		fqn = enclosingClass.Name + "." + name
		kind = ir.KindMethod
	}

	sigHash := ir.SigHash(signature, fqn)
	sym := ir.Symbol{
		ID:        w.makeID(fqn, sigHash),
		Language:  ir.LangPython,
		Kind:      kind,
		Name:      name,
		FQN:       fqn,
		Signature: signature,
		FilePath:  w.path,
		Span:      nodeSpan(n),
		SigHash:   sigHash,
	}
	if !sym.Span.Valid() {
		return sym
	}
	w.symbols = append(w.symbols, sym)
	w.occurrences = append(w.occurrences, ir.Occurrence{
		FilePath: w.path,
		SymbolID: sym.ID,
		Role:     ir.RoleDefinition,
		Span:     nodeSpan(nameNode),
		Token:    name,
	})
	return sym
}

// collectCallsAndImports walks the tree a second time, now that every
// same-file definition is known, to emit Calls and Imports edges.
func (w *walker) collectCallsAndImports(root *sitter.Node) {
	var walk func(n *sitter.Node, enclosing *ir.Symbol)
	walk = func(n *sitter.Node, enclosing *ir.Symbol) {
		if n == nil {
			return
		}

		switch n.Kind() {
		case "function_definition":
			if sym, ok := w.symbolAt(n); ok {
				enclosing = &sym
			}

		case "call":
			w.emitCall(n, enclosing)

		case "import_statement", "import_from_statement":
			w.emitImport(n)
		}

		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i), enclosing)
		}
	}
	walk(root, nil)
}

// symbolAt finds the already-emitted symbol whose span matches a
// function_definition node, to re-establish the "current function" context
// in the second pass.
func (w *walker) symbolAt(n *sitter.Node) (ir.Symbol, bool) {
	span := nodeSpan(n)
	for _, s := range w.symbols {
		if s.FilePath == w.path && s.Span == span && (s.Kind == ir.KindFunction || s.Kind == ir.KindMethod) {
			return s, true
		}
	}
	return ir.Symbol{}, false
}

func (w *walker) emitCall(n *sitter.Node, enclosing *ir.Symbol) {
	if enclosing == nil {
		return
	}
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}

	var callee string
	switch fn.Kind() {
	case "identifier":
		callee = nodeText(fn, w.content)
	case "attribute":
		attr := fn.ChildByFieldName("attribute")
		callee = nodeText(attr, w.content)
	default:
		return
	}
	if callee == "" {
		return
	}

	dest := callee
	if def, ok := w.byName[callee]; ok {
		dest = def.symbol.ID
	}

	w.edges = append(w.edges, ir.Edge{
		Type:       ir.EdgeCalls,
		Source:     enclosing.ID,
		Dest:       dest,
		Resolution: ir.ResolutionSyntactic,
	})
	w.occurrences = append(w.occurrences, ir.Occurrence{
		FilePath: w.path,
		SymbolID: symbolIDOrEmpty(dest, callee),
		Role:     ir.RoleCall,
		Span:     nodeSpan(fn),
		Token:    callee,
	})
}

// symbolIDOrEmpty returns dest only when it was actually resolved to a
// symbol id (as opposed to the raw callee name), so unresolved occurrences
// carry a null symbol id as required by spec.
func symbolIDOrEmpty(dest, rawName string) string {
	if dest == rawName {
		return ""
	}
	return dest
}

func (w *walker) emitImport(n *sitter.Node) {
	var modulePath string

	switch n.Kind() {
	case "import_statement":
		nameNode := n.ChildByFieldName("name")
		modulePath = nodeText(nameNode, w.content)

	case "import_from_statement":
		moduleNode := n.ChildByFieldName("module_name")
		if moduleNode == nil {
			return
		}
		modulePath = nodeText(moduleNode, w.content)
	}
	if modulePath == "" {
		return
	}

	w.edges = append(w.edges, ir.Edge{
		Type:       ir.EdgeImports,
		FileSrc:    w.path,
		FileDst:    guessModulePath(modulePath, w.path),
		Resolution: ir.ResolutionSyntactic,
		Meta: map[string]interface{}{
			"import": modulePath,
		},
	})
}

// guessModulePath converts a dotted Python module path to a best-effort
// repo-relative file path, following the standard package-to-directory
// convention. It is not guaranteed to resolve to a file that actually
// exists; the store does not enforce referential integrity on edges.
func guessModulePath(modulePath, fromFile string) string {
	parts := strings.Split(modulePath, ".")
	rel := strings.Join(parts, "/") + ".py"
	if strings.HasPrefix(modulePath, ".") {
		return path.Join(path.Dir(fromFile), rel)
	}
	return rel
}
