// Package mcp exposes function retrieval as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"funcfile/internal/retriever"
	"funcfile/internal/synth"
	"funcfile/internal/watcher"
)

type ListFunctionsInput struct {
	Path string `json:"path" jsonschema:"path of the JavaScript file"`
}

type FunctionInfo struct {
	Name      string   `json:"name"`
	Params    []string `json:"params"`
	Line      int      `json:"line"`
	Async     bool     `json:"async,omitempty"`
	Generator bool     `json:"generator,omitempty"`
}

type ListFunctionsOutput struct {
	Functions []FunctionInfo `json:"functions"`
}

type GetFunctionInput struct {
	Path string `json:"path" jsonschema:"path of the JavaScript file"`
	Name string `json:"name" jsonschema:"name of the function; the last definition wins"`
}

type GetFunctionOutput struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
	Source string   `json:"source"`
}

type CallFunctionInput struct {
	Path    string `json:"path" jsonschema:"path of the JavaScript file"`
	Name    string `json:"name" jsonschema:"name of the function to call"`
	Args    []any  `json:"args,omitempty" jsonschema:"JSON arguments passed in order"`
	Prelude string `json:"prelude,omitempty" jsonschema:"JavaScript evaluated first to define free variables"`
}

type CallFunctionOutput struct {
	Result any `json:"result"`
}

type ClearCacheInput struct{}

type ClearCacheOutput struct {
	Evicted int `json:"evicted"`
}

// Server serves the retriever's operations as MCP tools.
type Server struct {
	retriever *retriever.Retriever
	server    *mcp.Server
	watcher   *watcher.Watcher
	logger    *slog.Logger
}

// NewServer registers the tools on a new MCP server. A nil logger uses slog.Default().
func NewServer(r *retriever.Retriever, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		retriever: r,
		logger:    logger,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "funcfile",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Watch evicts cached sources under paths when they change while the server runs.
func (s *Server) Watch(paths ...string) error {
	if s.watcher == nil {
		w, err := watcher.New(s.retriever.Cache(), s.logger)
		if err != nil {
			return fmt.Errorf("failed to start file watcher: %w", err)
		}
		s.watcher = w
	}
	for _, path := range paths {
		if err := s.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}
	return nil
}

// Run serves over stdio until ctx is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	if s.watcher != nil {
		defer s.watcher.Close()
		go func() {
			if err := s.watcher.Run(ctx); err != nil {
				s.logger.Warn("file watcher stopped", "error", err)
			}
		}()
	}
	s.logger.Info("MCP server started (stdio mode)")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_functions",
		Description: "List the named functions defined in a JavaScript file, in source order.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in ListFunctionsInput) (*mcp.CallToolResult, ListFunctionsOutput, error) {
		out, err := s.ListFunctions(ctx, in)
		return nil, out, err
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_function",
		Description: "Return the rebuilt source of a named function from a JavaScript file.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in GetFunctionInput) (*mcp.CallToolResult, GetFunctionOutput, error) {
		out, err := s.GetFunction(ctx, in)
		return nil, out, err
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "call_function",
		Description: "Rebuild a named function from a JavaScript file and call it with JSON arguments.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in CallFunctionInput) (*mcp.CallToolResult, CallFunctionOutput, error) {
		out, err := s.CallFunction(ctx, in)
		return nil, out, err
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clear_cache",
		Description: "Drop every cached parse result.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in ClearCacheInput) (*mcp.CallToolResult, ClearCacheOutput, error) {
		return nil, s.ClearCache(ctx, in), nil
	})
}

// ListFunctions handles list_functions.
func (s *Server) ListFunctions(ctx context.Context, in ListFunctionsInput) (ListFunctionsOutput, error) {
	if in.Path == "" {
		return ListFunctionsOutput{}, fmt.Errorf("path is required")
	}
	fns, err := s.retriever.Functions(ctx, in.Path)
	if err != nil {
		s.logger.Warn("list_functions failed", "path", in.Path, "error", err)
		return ListFunctionsOutput{}, err
	}
	out := ListFunctionsOutput{Functions: make([]FunctionInfo, 0, len(fns))}
	for _, fn := range fns {
		params := make([]string, 0, len(fn.Params))
		for _, p := range fn.Params {
			params = append(params, p.Name)
		}
		out.Functions = append(out.Functions, FunctionInfo{
			Name:      fn.Name,
			Params:    params,
			Line:      fn.Line,
			Async:     fn.Async,
			Generator: fn.Generator,
		})
	}
	return out, nil
}

// GetFunction handles get_function.
func (s *Server) GetFunction(ctx context.Context, in GetFunctionInput) (GetFunctionOutput, error) {
	if in.Path == "" || in.Name == "" {
		return GetFunctionOutput{}, fmt.Errorf("path and name are required")
	}
	fn, err := s.retriever.Retrieve(ctx, in.Path, in.Name, synth.NewScope())
	if err != nil {
		s.logger.Warn("get_function failed", "path", in.Path, "name", in.Name, "error", err)
		return GetFunctionOutput{}, err
	}
	return GetFunctionOutput{Name: fn.Name, Params: fn.Params, Source: fn.String()}, nil
}

// CallFunction handles call_function. Each call runs in a fresh scope, so
// definitions made by one prelude are never visible to another call.
func (s *Server) CallFunction(ctx context.Context, in CallFunctionInput) (CallFunctionOutput, error) {
	if in.Path == "" || in.Name == "" {
		return CallFunctionOutput{}, fmt.Errorf("path and name are required")
	}
	scope := synth.NewScope()
	if in.Prelude != "" {
		if _, err := scope.Run(in.Prelude); err != nil {
			return CallFunctionOutput{}, fmt.Errorf("evaluating prelude: %w", err)
		}
	}
	fn, err := s.retriever.Retrieve(ctx, in.Path, in.Name, scope)
	if err != nil {
		s.logger.Warn("call_function failed", "path", in.Path, "name", in.Name, "error", err)
		return CallFunctionOutput{}, err
	}
	result, err := fn.Invoke(in.Args...)
	if err != nil {
		return CallFunctionOutput{}, fmt.Errorf("calling %s: %w", in.Name, err)
	}
	return CallFunctionOutput{Result: result}, nil
}

// ClearCache handles clear_cache.
func (s *Server) ClearCache(_ context.Context, _ ClearCacheInput) ClearCacheOutput {
	n := s.retriever.Cache().Len()
	s.retriever.ClearCache()
	s.logger.Info("cache cleared", "entries", n)
	return ClearCacheOutput{Evicted: n}
}
