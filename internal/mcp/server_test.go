package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funcfile/internal/retriever"
)

const toolSource = `function add(a, b) {
	return a + b;
}

async function later({ delay }) {
	return delay;
}

function greet() {
	return greeting + ', ' + target;
}
`

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tools.js")
	require.NoError(t, os.WriteFile(path, []byte(toolSource), 0o644))
	return NewServer(retriever.New(nil), "test", nil), path
}

func TestListFunctions(t *testing.T) {
	t.Parallel()
	s, path := newTestServer(t)

	out, err := s.ListFunctions(context.Background(), ListFunctionsInput{Path: path})
	require.NoError(t, err)
	require.Len(t, out.Functions, 3)

	assert.Equal(t, FunctionInfo{Name: "add", Params: []string{"a", "b"}, Line: 1}, out.Functions[0])
	assert.True(t, out.Functions[1].Async)
	assert.Equal(t, []string{"{ delay }"}, out.Functions[1].Params)
	assert.Equal(t, 9, out.Functions[2].Line)
}

func TestListFunctionsErrors(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	_, err := s.ListFunctions(context.Background(), ListFunctionsInput{})
	assert.Error(t, err)

	_, err = s.ListFunctions(context.Background(), ListFunctionsInput{Path: filepath.Join(t.TempDir(), "nope.js")})
	var rerr *retriever.ReadError
	assert.ErrorAs(t, err, &rerr)
}

func TestGetFunction(t *testing.T) {
	t.Parallel()
	s, path := newTestServer(t)

	out, err := s.GetFunction(context.Background(), GetFunctionInput{Path: path, Name: "add"})
	require.NoError(t, err)
	assert.Equal(t, "add", out.Name)
	assert.Equal(t, []string{"a", "b"}, out.Params)
	assert.Contains(t, out.Source, "return a + b;")

	_, err = s.GetFunction(context.Background(), GetFunctionInput{Path: path, Name: "missing"})
	var nf *retriever.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestCallFunction(t *testing.T) {
	t.Parallel()
	s, path := newTestServer(t)
	ctx := context.Background()

	out, err := s.CallFunction(ctx, CallFunctionInput{Path: path, Name: "add", Args: []any{1.0, 2.0}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, out.Result)

	out, err = s.CallFunction(ctx, CallFunctionInput{
		Path:    path,
		Name:    "greet",
		Prelude: "var greeting = 'Hello'; var target = 'world';",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", out.Result)

	_, err = s.CallFunction(ctx, CallFunctionInput{Path: path, Name: "greet"})
	require.Error(t, err, "a fresh scope does not see an earlier prelude")
	assert.Contains(t, err.Error(), "not defined")

	_, err = s.CallFunction(ctx, CallFunctionInput{Path: path, Name: "add", Prelude: "var ("})
	assert.ErrorContains(t, err, "evaluating prelude")
}

func TestCallFunctionAsyncAndGenerator(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "modifiers.js")
	require.NoError(t, os.WriteFile(path, []byte(`async function load(x) { return x * 2; }
function* gen() { yield 'a'; yield 'b'; }
`), 0o644))

	out, err := s.CallFunction(ctx, CallFunctionInput{Path: path, Name: "load", Args: []any{21.0}})
	require.NoError(t, err)
	assert.EqualValues(t, 42, out.Result)

	out, err = s.CallFunction(ctx, CallFunctionInput{Path: path, Name: "gen"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, out.Result)
}

func TestClearCache(t *testing.T) {
	t.Parallel()
	s, path := newTestServer(t)
	ctx := context.Background()

	_, err := s.ListFunctions(ctx, ListFunctionsInput{Path: path})
	require.NoError(t, err)
	require.Equal(t, 1, s.retriever.Cache().Len())

	assert.Equal(t, ClearCacheOutput{Evicted: 1}, s.ClearCache(ctx, ClearCacheInput{}))
	assert.Equal(t, 0, s.retriever.Cache().Len())
}

func TestWatchMissingPath(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	defer func() {
		if s.watcher != nil {
			s.watcher.Close()
		}
	}()

	assert.Error(t, s.Watch(filepath.Join(t.TempDir(), "missing")))
}
