package synth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"funcfile/internal/parser"
)

// Function is a function rebuilt from source text and bound to a Scope.
type Function struct {
	Name   string   // Requested name
	Params []string // Identifier parameters kept in the rebuilt signature
	Body   string   // Body block exactly as sliced from the source

	source    string
	generator bool
	scope     *Scope
	call      goja.Callable
	value     goja.Value
}

// maxGeneratorValues bounds how many values Invoke collects from a generator.
const maxGeneratorValues = 10000

// Synthesize rebuilds fn from source and evaluates it in scope.
//
// The body is source[fn.BodyStart:fn.End]. The signature is rebuilt from the
// descriptor rather than sliced: only plain identifier parameters are kept, so
// destructuring, default and rest parameters are dropped.
func Synthesize(source string, fn parser.FunctionDescriptor, scope *Scope) (*Function, error) {
	if fn.BodyStart < 0 || fn.End > len(source) || fn.BodyStart > fn.End {
		return nil, fmt.Errorf("synthesizing %s: offsets %d:%d out of range for %d bytes of source",
			fn.Name, fn.BodyStart, fn.End, len(source))
	}

	f := &Function{
		Name:   fn.Name,
		Params: fn.IdentifierParams(),
		Body:   source[fn.BodyStart:fn.End],
	}
	f.source = render(f.Name, f.Params, f.Body, fn.Async, fn.Generator)
	f.generator = fn.Generator

	if err := f.bind(scope); err != nil {
		return nil, err
	}
	return f, nil
}

func render(name string, params []string, body string, async, generator bool) string {
	var b strings.Builder
	if async {
		b.WriteString("async ")
	}
	b.WriteString("function")
	if generator {
		b.WriteString("*")
	}
	b.WriteString(" ")
	b.WriteString(name)
	b.WriteString("(")
	b.WriteString(strings.Join(params, ","))
	b.WriteString(") ")
	b.WriteString(body)
	return b.String()
}

// bind compiles the rendered source as a function expression and evaluates it in scope.
func (f *Function) bind(scope *Scope) error {
	if scope == nil {
		return errors.New("synthesizing " + f.Name + ": nil scope")
	}

	prog, err := goja.Compile(f.Name, "("+f.source+")", false)
	if err != nil {
		return fmt.Errorf("synthesizing %s: %w", f.Name, err)
	}

	return scope.Do(func(rt *goja.Runtime) error {
		v, err := rt.RunProgram(prog)
		if err != nil {
			return fmt.Errorf("synthesizing %s: %w", f.Name, err)
		}
		call, ok := goja.AssertFunction(v)
		if !ok {
			return fmt.Errorf("synthesizing %s: evaluated to %s, not a function", f.Name, v)
		}
		f.scope = scope
		f.value = v
		f.call = call
		return nil
	})
}

// String returns the rebuilt source, the analogue of Function.prototype.toString.
func (f *Function) String() string {
	return f.source
}

// Scope returns the scope the function was evaluated in.
func (f *Function) Scope() *Scope {
	return f.scope
}

// Value returns the JavaScript function object. Only use it inside Scope().Do.
func (f *Function) Value() goja.Value {
	return f.value
}

// Call invokes the function with Go arguments converted to JavaScript values.
// A body that references identifiers missing from the scope fails here, with a
// ReferenceError, not at synthesis time. Object results should be inspected
// inside Scope().Do; use Invoke to get a plain Go value.
func (f *Function) Call(args ...any) (goja.Value, error) {
	var result goja.Value
	err := f.scope.Do(func(rt *goja.Runtime) error {
		v, err := f.callLocked(rt, args)
		result = v
		return err
	})
	return result, err
}

// Invoke calls the function and exports the result to a Go value.
// A promise returned by an async function is unwrapped to its fulfilled value;
// a rejected or still pending promise is an error. A generator is run to
// completion and its yielded values are returned as a []any.
func (f *Function) Invoke(args ...any) (any, error) {
	var out any
	err := f.scope.Do(func(rt *goja.Runtime) error {
		v, err := f.callLocked(rt, args)
		if err != nil {
			return err
		}
		if f.generator {
			out, err = f.drain(rt, v)
			return err
		}
		out, err = f.settle(v)
		return err
	})
	return out, err
}

// settle unwraps a promise. The runtime drains its job queue when the outermost
// call returns, so a promise that is still pending here never settles.
func (f *Function) settle(v goja.Value) (any, error) {
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		return v.Export(), nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result().Export(), nil
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("%s rejected: %s", f.Name, p.Result())
	default:
		return nil, fmt.Errorf("%s returned a promise that never settled", f.Name)
	}
}

func (f *Function) drain(rt *goja.Runtime, v goja.Value) (any, error) {
	iter := v.ToObject(rt)
	next, ok := goja.AssertFunction(iter.Get("next"))
	if !ok {
		return nil, fmt.Errorf("%s did not return an iterator", f.Name)
	}

	values := []any{}
	for {
		res, err := next(iter)
		if err != nil {
			return nil, err
		}
		step := res.ToObject(rt)
		if step.Get("done").ToBoolean() {
			return values, nil
		}
		if len(values) == maxGeneratorValues {
			return nil, fmt.Errorf("%s yielded more than %d values", f.Name, maxGeneratorValues)
		}
		values = append(values, step.Get("value").Export())
	}
}

func (f *Function) callLocked(rt *goja.Runtime, args []any) (goja.Value, error) {
	jsArgs := make([]goja.Value, len(args))
	for i, a := range args {
		jsArgs[i] = rt.ToValue(a)
	}
	return f.call(goja.Undefined(), jsArgs...)
}

// Rebind evaluates the same source in another scope, so its free variables
// resolve there instead.
func (f *Function) Rebind(scope *Scope) (*Function, error) {
	g := &Function{
		Name:   f.Name,
		Params: f.Params,
		Body:   f.Body,

		source:    f.source,
		generator: f.generator,
	}
	if err := g.bind(scope); err != nil {
		return nil, err
	}
	return g, nil
}
