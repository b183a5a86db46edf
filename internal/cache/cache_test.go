package cache

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funcfile/internal/parser"
)

func sample(text string) *ParsedSource {
	return &ParsedSource{
		Text:      text,
		Functions: []parser.FunctionDescriptor{{Name: "fn", BodyStart: 0, End: len(text)}},
	}
}

func TestCacheGetPut(t *testing.T) {
	t.Parallel()

	c := New()
	assert.True(t, c.Enabled())

	_, ok := c.Get("a.js")
	assert.False(t, ok)

	src := sample("{}")
	c.Put("a.js", src)

	got, ok := c.Get("a.js")
	require.True(t, ok)
	assert.Same(t, src, got)
	assert.Equal(t, 1, c.Len())
}

func TestCacheLastPutWins(t *testing.T) {
	t.Parallel()

	c := New()
	first, second := sample("{ 1 }"), sample("{ 2 }")
	c.Put("a.js", first)
	c.Put("a.js", second)

	got, ok := c.Get("a.js")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestCacheDisabled(t *testing.T) {
	t.Parallel()

	c := New()
	c.Put("kept.js", sample("{}"))

	c.Disable()
	assert.False(t, c.Enabled())

	_, ok := c.Get("kept.js")
	assert.False(t, ok, "disabled cache must bypass lookups")

	c.Put("new.js", sample("{}"))
	assert.Equal(t, 1, c.Len(), "disabled cache must not be populated")

	c.Enable()
	_, ok = c.Get("kept.js")
	assert.True(t, ok, "entries survive a disable/enable cycle")
	_, ok = c.Get("new.js")
	assert.False(t, ok)
}

func TestCacheClearAndEvict(t *testing.T) {
	t.Parallel()

	c := New()
	c.Put("a.js", sample("{}"))
	c.Put("b.js", sample("{}"))

	c.Evict("a.js")
	_, ok := c.Get("a.js")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok = c.Get("b.js")
	assert.False(t, ok)
}

func TestCacheEvictMatching(t *testing.T) {
	t.Parallel()

	c := New()
	c.Put("lib/a.js", sample("{}"))
	c.Put("./lib/a.js", sample("{}"))
	c.Put("lib/b.js", sample("{}"))

	n := c.EvictMatching(func(path string) bool { return strings.HasSuffix(path, "a.js") })
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, c.Len())
}

func TestCacheConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Put("same.js", sample("{}"))
			c.Get("same.js")
			if i%4 == 0 {
				c.Clear()
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 1)
}
