package retriever

import (
	"context"
	"fmt"

	"funcfile/internal/synth"
)

// Result is the outcome of RetrieveAsync.
type Result struct {
	Fn  *synth.Function
	Err error
}

// BatchResult is the outcome of RetrieveAllAsync.
type BatchResult struct {
	Fns map[string]*synth.Function
	Err error
}

// RetrieveAsync runs Retrieve in its own goroutine. The returned channel
// receives exactly one Result and is then closed. In-flight reads cannot be cancelled.
func (r *Retriever) RetrieveAsync(ctx context.Context, path, name string, scope *synth.Scope) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		defer func() {
			if p := recover(); p != nil {
				ch <- Result{Err: fmt.Errorf("retrieving %s from %s: %v", name, path, p)}
			}
		}()
		fn, err := r.Retrieve(ctx, path, name, scope)
		ch <- Result{Fn: fn, Err: err}
	}()
	return ch
}

// RetrieveAllAsync runs RetrieveAll in its own goroutine. The returned channel
// receives exactly one BatchResult and is then closed.
func (r *Retriever) RetrieveAllAsync(ctx context.Context, path string, names []string, scope *synth.Scope) <-chan BatchResult {
	ch := make(chan BatchResult, 1)
	go func() {
		defer close(ch)
		defer func() {
			if p := recover(); p != nil {
				ch <- BatchResult{Err: fmt.Errorf("retrieving %v from %s: %v", names, path, p)}
			}
		}()
		fns, err := r.RetrieveAll(ctx, path, names, scope)
		ch <- BatchResult{Fns: fns, Err: err}
	}()
	return ch
}
