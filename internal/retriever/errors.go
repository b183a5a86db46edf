package retriever

import "fmt"

// ReadError reports a source file that could not be read. Its message is the
// underlying I/O error's message, unchanged.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string { return e.Err.Error() }
func (e *ReadError) Unwrap() error { return e.Err }

// ParseError reports a source file that is not valid JavaScript.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Error parsing source code `%s`. %s", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NotFoundError reports a function name with no definition in the parsed source.
type NotFoundError struct {
	Name string
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Function `%s` not found in given source code `%s`.", e.Name, e.Path)
}
