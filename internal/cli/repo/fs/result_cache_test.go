package fs

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) *ResultCache {
	t.Helper()
	c, err := NewResultCache(filepath.Join(t.TempDir(), "cache"), nil)
	require.NoError(t, err)
	return c
}

func TestResultCache_PutGet_ByteIdentical(t *testing.T) {
	c := newCache(t)
	params := map[string]any{"prompt": "write a poem", "user_address": "secret1abc", "n": 3}
	result := []byte{0x00, 0xff, '{', '}', 0x10}

	_, ok := c.Get("generate", params)
	assert.False(t, ok, "never-written key must miss")

	require.NoError(t, c.Put("generate", params, result))
	got, ok := c.Get("generate", params)
	require.True(t, ok)
	assert.Equal(t, result, got)

	// другой action — другой ключ
	_, ok = c.Get("enhance", params)
	assert.False(t, ok)
}

func TestResultCache_KeyIsOrderIndependent(t *testing.T) {
	c := newCache(t)
	require.NoError(t, c.Put("generate", map[string]any{"x": 1, "y": 2}, []byte("r")))
	got, ok := c.Get("generate", map[string]any{"y": 2, "x": 1})
	require.True(t, ok)
	assert.Equal(t, []byte("r"), got)

	k1, err := Key("generate", map[string]any{"x": 1, "y": 2})
	require.NoError(t, err)
	k2, err := Key("generate", struct {
		Y int `json:"y"`
		X int `json:"x"`
	}{Y: 2, X: 1})
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)
}

func TestResultCache_CorruptEntryIsMissAndOverwritten(t *testing.T) {
	c := newCache(t)
	params := map[string]any{"prompt": "p"}
	require.NoError(t, c.Put("generate", params, []byte("first")))

	key, err := Key("generate", params)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.path(key), []byte{cacheFormatVersion, 0xde, 0xad}, 0o600))
	_, ok := c.Get("generate", params)
	assert.False(t, ok)

	require.NoError(t, c.Put("generate", params, []byte("second")))
	got, ok := c.Get("generate", params)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), got)
}

func TestResultCache_VersionMismatchIsMiss(t *testing.T) {
	c := newCache(t)
	params := map[string]any{"a": true}
	require.NoError(t, c.Put("enhance", params, []byte("v1")))

	key, err := Key("enhance", params)
	require.NoError(t, err)
	data, err := os.ReadFile(c.path(key))
	require.NoError(t, err)
	data[0] = cacheFormatVersion + 1
	require.NoError(t, os.WriteFile(c.path(key), data, 0o600))

	_, ok := c.Get("enhance", params)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(c.path(key), nil, 0o600))
	_, ok = c.Get("enhance", params)
	assert.False(t, ok)
}

func TestResultCache_JSONHelpers(t *testing.T) {
	c := newCache(t)
	type result struct {
		Content string `json:"content"`
		Tokens  int    `json:"tokens"`
	}
	params := map[string]any{"prompt": "hi"}
	var out result
	assert.False(t, c.GetJSON("generate", params, &out))

	require.NoError(t, c.PutJSON("generate", params, result{Content: "hello", Tokens: 2}))
	require.True(t, c.GetJSON("generate", params, &out))
	assert.Equal(t, result{Content: "hello", Tokens: 2}, out)

	// не-JSON в записи — промах
	require.NoError(t, c.Put("generate", params, []byte("not json")))
	assert.False(t, c.GetJSON("generate", params, &out))
}

func TestResultCache_ConcurrentPutsLeaveValidEntry(t *testing.T) {
	c := newCache(t)
	params := map[string]any{"k": "v"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Put("generate", params, []byte{byte(i)})
		}(i)
	}
	wg.Wait()

	got, ok := c.Get("generate", params)
	require.True(t, ok)
	require.Len(t, got, 1)

	// временные файлы не остаются
	matches, err := filepath.Glob(filepath.Join(c.Dir(), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestResultCache_Errors(t *testing.T) {
	_, err := NewResultCache("", nil)
	assert.Error(t, err)

	c := newCache(t)
	assert.Error(t, c.Put("generate", map[string]any{"c": make(chan int)}, []byte("x")))
	_, ok := c.Get("generate", map[string]any{"c": make(chan int)})
	assert.False(t, ok)
}
