package retriever

import "funcfile/internal/parser"

// locate returns the last descriptor named name. A later definition shadows
// earlier ones, the same way a redefinition does when the source runs.
func locate(functions []parser.FunctionDescriptor, name string) (parser.FunctionDescriptor, bool) {
	for i := len(functions) - 1; i >= 0; i-- {
		if functions[i].Name == name {
			return functions[i], true
		}
	}
	return parser.FunctionDescriptor{}, false
}
