package parser

import (
	"errors"
	"fmt"
	"strings"

	jsparser "github.com/dop251/goja/parser"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
)

var javascriptLanguage = tree_sitter.NewLanguage(tree_sitter_javascript.Language())

// JavaScriptParser implements LanguageParser for JavaScript language
type JavaScriptParser struct{}

// NewJavaScriptParser creates a new JavaScript parser
func NewJavaScriptParser() *JavaScriptParser {
	return &JavaScriptParser{}
}

// Language returns the language name
func (p *JavaScriptParser) Language() string {
	return string(LanguageJavaScript)
}

// Parse extracts named function declarations and expressions, inner ones included.
// A tree containing any ERROR or MISSING node is rejected with a *SyntaxError, as
// is source with early errors the grammar tolerates (a top-level return, a break
// or continue outside a loop).
func (p *JavaScriptParser) Parse(code []byte) ([]FunctionDescriptor, error) {
	if len(code) == 0 {
		return nil, nil
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(javascriptLanguage); err != nil {
		return nil, fmt.Errorf("failed to load JavaScript grammar: %w", err)
	}

	tree := parser.Parse(code, nil)
	if tree == nil {
		return nil, &SyntaxError{Line: 1, Column: 1, Message: "parser produced no syntax tree"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxErrorAt(root, code)
	}
	if serr := earlyError(code); serr != nil {
		return nil, serr
	}

	var functions []FunctionDescriptor
	p.traverseNode(root, code, &functions)
	return functions, nil
}

// traverseNode walks the tree in pre-order so outer functions precede inner ones.
func (p *JavaScriptParser) traverseNode(node *tree_sitter.Node, code []byte, functions *[]FunctionDescriptor) {
	switch node.Kind() {
	case "function_declaration", "generator_function_declaration",
		"function_expression", "generator_function":
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			if fn, ok := describeFunction(node, nameNode.Utf8Text(code), code); ok {
				*functions = append(*functions, fn)
			}
		}

	case "variable_declarator":
		p.extractBoundFunction(node.ChildByFieldName("name"), node.ChildByFieldName("value"), code, functions)

	case "assignment_expression":
		p.extractBoundFunction(node.ChildByFieldName("left"), node.ChildByFieldName("right"), code, functions)
	}

	for i := uint(0); i < uint(node.ChildCount()); i++ {
		p.traverseNode(node.Child(i), code, functions)
	}
}

// extractBoundFunction handles `var name = function () {...}` and `name = () => {...}`.
// Functions that carry their own name are reported when the walk reaches them.
func (p *JavaScriptParser) extractBoundFunction(nameNode, valueNode *tree_sitter.Node, code []byte, functions *[]FunctionDescriptor) {
	if nameNode == nil || valueNode == nil || nameNode.Kind() != "identifier" {
		return
	}
	switch valueNode.Kind() {
	case "function_expression", "generator_function", "arrow_function":
	default:
		return
	}
	if valueNode.ChildByFieldName("name") != nil {
		return
	}
	if fn, ok := describeFunction(valueNode, nameNode.Utf8Text(code), code); ok {
		*functions = append(*functions, fn)
	}
}

// describeFunction builds a descriptor for a function node whose body is a block.
func describeFunction(node *tree_sitter.Node, name string, code []byte) (FunctionDescriptor, bool) {
	body := node.ChildByFieldName("body")
	if body == nil || body.Kind() != "statement_block" {
		return FunctionDescriptor{}, false
	}

	fn := FunctionDescriptor{
		Name:      name,
		Start:     int(node.StartByte()),
		BodyStart: int(body.StartByte()),
		End:       int(node.EndByte()),
		Line:      int(node.StartPosition().Row) + 1,
		Generator: strings.HasPrefix(node.Kind(), "generator_"),
	}

	for i := uint(0); i < uint(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "async":
			fn.Async = true
		case "*":
			fn.Generator = true
		}
	}

	if params := node.ChildByFieldName("parameters"); params != nil {
		fn.Params = extractParams(params, code)
	} else if param := node.ChildByFieldName("parameter"); param != nil {
		// single unparenthesized arrow parameter
		fn.Params = []Param{{Name: param.Utf8Text(code), Kind: ParamKind(param.Kind())}}
	}

	return fn, true
}

func extractParams(params *tree_sitter.Node, code []byte) []Param {
	var out []Param
	for i := uint(0); i < uint(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		if child.Kind() == "comment" {
			continue
		}
		out = append(out, Param{
			Name: child.Utf8Text(code),
			Kind: ParamKind(child.Kind()),
		})
	}
	return out
}

// earlyError runs the engine's own parser over code and reports its first error.
func earlyError(code []byte) *SyntaxError {
	_, err := jsparser.ParseFile(nil, "", code, 0)
	if err == nil {
		return nil
	}

	var list jsparser.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		return &SyntaxError{
			Line:    list[0].Position.Line,
			Column:  list[0].Position.Column,
			Message: list[0].Message,
		}
	}
	var single *jsparser.Error
	if errors.As(err, &single) {
		return &SyntaxError{Line: single.Position.Line, Column: single.Position.Column, Message: single.Message}
	}
	return &SyntaxError{Line: 1, Column: 1, Message: err.Error()}
}

// syntaxErrorAt locates the first ERROR or MISSING node below root.
func syntaxErrorAt(root *tree_sitter.Node, code []byte) *SyntaxError {
	bad := firstErrorNode(root)
	if bad == nil {
		bad = root
	}
	pos := bad.StartPosition()
	serr := &SyntaxError{
		Line:   int(pos.Row) + 1,
		Column: int(pos.Column) + 1,
	}

	if bad.IsMissing() {
		serr.Message = fmt.Sprintf("Missing %q", bad.Kind())
		return serr
	}

	text := strings.TrimSpace(bad.Utf8Text(code))
	if idx := strings.IndexAny(text, "\r\n"); idx >= 0 {
		text = text[:idx]
	}
	if len(text) > 40 {
		text = text[:40] + "..."
	}
	if text == "" {
		serr.Message = "Unexpected end of input"
	} else {
		serr.Message = fmt.Sprintf("Unexpected token %q", text)
	}
	return serr
}

func firstErrorNode(node *tree_sitter.Node) *tree_sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := uint(0); i < uint(node.ChildCount()); i++ {
		if bad := firstErrorNode(node.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}
