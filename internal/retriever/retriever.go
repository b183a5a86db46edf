// Package retriever loads JavaScript source files and rebuilds named functions from them.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"funcfile/internal/cache"
	"funcfile/internal/parser"
	"funcfile/internal/synth"
)

const tracerName = "funcfile/retriever"

// SourceParser turns source text into function descriptors.
type SourceParser interface {
	Parse(code []byte) ([]parser.FunctionDescriptor, error)
}

// Retriever reads, parses and caches source files and rebuilds functions from them.
type Retriever struct {
	cache  *cache.Cache
	fs     afero.Fs
	parser SourceParser
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithFs sets the filesystem sources are read from. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(r *Retriever) { r.fs = fs }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) { r.logger = logger }
}

// WithParser replaces the tree-sitter JavaScript parser.
func WithParser(p SourceParser) Option {
	return func(r *Retriever) { r.parser = p }
}

// New creates a Retriever backed by c. A nil cache gets a fresh one.
func New(c *cache.Cache, opts ...Option) *Retriever {
	if c == nil {
		c = cache.New()
	}
	r := &Retriever{
		cache:  c,
		fs:     afero.NewOsFs(),
		parser: parser.NewJavaScriptParser(),
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache returns the cache the retriever reads through.
func (r *Retriever) Cache() *cache.Cache { return r.cache }

// ClearCache drops every cached source.
func (r *Retriever) ClearCache() { r.cache.Clear() }

// EnableCache turns caching on.
func (r *Retriever) EnableCache() { r.cache.Enable() }

// DisableCache turns caching off; every call rereads and reparses.
func (r *Retriever) DisableCache() { r.cache.Disable() }

// Retrieve rebuilds the function name from the file at path, evaluated in scope.
func (r *Retriever) Retrieve(ctx context.Context, path, name string, scope *synth.Scope) (fn *synth.Function, err error) {
	ctx, span := r.tracer.Start(ctx, "Retrieve", trace.WithAttributes(
		attribute.String("path", path),
		attribute.String("name", name),
	))
	defer func() { endSpan(span, err) }()

	src, err := r.load(ctx, path)
	if err != nil {
		return nil, err
	}
	return r.build(src, path, name, scope)
}

// RetrieveAll rebuilds every function in names. If any name is missing the whole
// call fails with that name's NotFoundError and no map is returned.
func (r *Retriever) RetrieveAll(ctx context.Context, path string, names []string, scope *synth.Scope) (fns map[string]*synth.Function, err error) {
	ctx, span := r.tracer.Start(ctx, "RetrieveAll", trace.WithAttributes(
		attribute.String("path", path),
		attribute.StringSlice("names", names),
	))
	defer func() { endSpan(span, err) }()

	src, err := r.load(ctx, path)
	if err != nil {
		return nil, err
	}

	fns = make(map[string]*synth.Function, len(names))
	for _, name := range names {
		fn, err := r.build(src, path, name, scope)
		if err != nil {
			return nil, err
		}
		fns[name] = fn
	}
	return fns, nil
}

// Functions returns the descriptors parsed from path, going through the cache.
func (r *Retriever) Functions(ctx context.Context, path string) (fns []parser.FunctionDescriptor, err error) {
	ctx, span := r.tracer.Start(ctx, "Functions", trace.WithAttributes(attribute.String("path", path)))
	defer func() { endSpan(span, err) }()

	src, err := r.load(ctx, path)
	if err != nil {
		return nil, err
	}
	out := make([]parser.FunctionDescriptor, len(src.Functions))
	copy(out, src.Functions)
	return out, nil
}

// load returns the parsed source for path, reading and parsing it on a cache miss.
// The result is stored only while caching is enabled.
func (r *Retriever) load(ctx context.Context, path string) (*cache.ParsedSource, error) {
	span := trace.SpanFromContext(ctx)

	if src, ok := r.cache.Get(path); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		r.logger.Debug("source cache hit", "path", path)
		return src, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	start := time.Now()
	functions, err := r.parser.Parse(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	r.logger.Debug("parsed source",
		"path", path,
		"functions", len(functions),
		"duration", time.Since(start),
		"cached", r.cache.Enabled(),
	)

	src := &cache.ParsedSource{Text: string(data), Functions: functions}
	r.cache.Put(path, src)
	return src, nil
}

func (r *Retriever) build(src *cache.ParsedSource, path, name string, scope *synth.Scope) (*synth.Function, error) {
	desc, ok := locate(src.Functions, name)
	if !ok {
		return nil, &NotFoundError{Name: name, Path: path}
	}
	fn, err := synth.Synthesize(src.Text, desc, scope)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fn, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
