// Package synth rebuilds callable JavaScript functions from slices of source text.
//
// A rebuilt function is evaluated inside a Scope, a single goja runtime whose
// global environment stands in for the lexical scope of the call site. Free
// variables in a function body resolve against that environment when the function
// runs, never against the file the body was cut from. This is an approximation of
// JavaScript scope capture: only globals of the runtime are visible, there is no
// enclosing function scope.
package synth

import (
	"sync"

	"github.com/dop251/goja"
)

// Scope is the environment rebuilt functions are evaluated and run in.
// A goja runtime is not goroutine-safe, so every access goes through mu.
// Calls are not re-entrant: a Go callback invoked from JavaScript must not call
// back into the same Scope.
type Scope struct {
	mu sync.Mutex
	rt *goja.Runtime
}

// NewScope creates a scope backed by a fresh runtime.
func NewScope() *Scope {
	rt := goja.New()
	rt.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	return &Scope{rt: rt}
}

// Set binds a global variable visible to functions evaluated in this scope.
func (s *Scope) Set(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rt.Set(name, value)
}

// Get returns the exported Go value of a global, or nil when it is not defined.
func (s *Scope) Get(name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.rt.Get(name)
	if v == nil {
		return nil
	}
	return v.Export()
}

// Run evaluates src as a script in the scope, typically to define the free
// variables a rebuilt function depends on.
func (s *Scope) Run(src string) (goja.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rt.RunString(src)
}

// Do gives fn exclusive access to the underlying runtime.
func (s *Scope) Do(fn func(rt *goja.Runtime) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.rt)
}
