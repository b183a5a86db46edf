// Package parser locates named function definitions in JavaScript source.
//
// Arrow functions bound to a name are reported like function expressions. They are
// rebuilt with function syntax, so this and arguments bind per call instead of
// lexically.
package parser

import "fmt"

// ParamKind is the syntax node kind of a formal parameter.
type ParamKind string

const (
	ParamIdentifier ParamKind = "identifier"
	ParamDefault    ParamKind = "assignment_pattern"
	ParamObject     ParamKind = "object_pattern"
	ParamArray      ParamKind = "array_pattern"
	ParamRest       ParamKind = "rest_pattern"
)

// Param is one formal parameter of a function definition.
type Param struct {
	Name string    // Source text of the parameter
	Kind ParamKind // Node kind; only ParamIdentifier survives reconstruction
}

// FunctionDescriptor describes one named function definition found in a source text.
// Offsets are byte offsets into the exact text the descriptor was parsed from.
type FunctionDescriptor struct {
	Name      string  // Declared or bound name
	Params    []Param // Formal parameters in declaration order
	Start     int     // Offset of the definition
	BodyStart int     // Offset of the opening brace of the body block
	End       int     // Offset just past the end of the function
	Line      int     // Starting line number (1-indexed)
	Async     bool    // Declared with the async modifier
	Generator bool    // Declared as a generator (function*)
}

// IdentifierParams returns the names of the plain identifier parameters in order.
func (d FunctionDescriptor) IdentifierParams() []string {
	names := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		if p.Kind == ParamIdentifier {
			names = append(names, p.Name)
		}
	}
	return names
}

// Signature renders the descriptor as name(params), keeping every parameter as written.
func (d FunctionDescriptor) Signature() string {
	params := ""
	for i, p := range d.Params {
		if i > 0 {
			params += ", "
		}
		params += p.Name
	}
	return fmt.Sprintf("%s(%s)", d.Name, params)
}

// LanguageParser turns source text into function descriptors.
type LanguageParser interface {
	// Parse returns every named function definition in source order.
	Parse(code []byte) ([]FunctionDescriptor, error)

	// Language returns the language name
	Language() string
}

// Language represents supported programming languages
type Language string

const (
	LanguageJavaScript Language = "javascript"
)

// SyntaxError reports the first syntax error found while parsing.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s (%d:%d)", e.Message, e.Line, e.Column)
}
