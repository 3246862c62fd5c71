package mcplog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLoggerIsDisabled(t *testing.T) {
	l, err := New("")
	require.NoError(t, err)
	require.Nil(t, l)

	// All operations on the nil logger are no-ops.
	assert.NoError(t, l.Write(Entry{Tool: "x"}))
	assert.NoError(t, l.Close())
}

func TestWriteAppendsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mcp.jsonl")
	l, err := New(path)
	require.NoError(t, err)

	require.NoError(t, l.Write(Entry{Ts: "2026-01-01T00:00:00Z", Tool: "find_symbol", DurationMs: 3}))
	require.NoError(t, l.Write(Entry{Ts: "2026-01-01T00:00:01Z", Tool: "project_stats", IsError: true}))
	require.NoError(t, l.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, "find_symbol", entries[0].Tool)
	assert.True(t, entries[1].IsError)
}

func TestSanitizeParams(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	out := SanitizeParams(map[string]any{
		"short": "ok",
		"long":  string(long),
		"num":   3,
	})
	assert.Equal(t, "ok", out["short"])
	assert.Equal(t, 3, out["num"])
	assert.NotContains(t, out, "long")
	assert.Equal(t, 100, out["long_len"])
}
