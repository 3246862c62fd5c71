// Package mcplog writes one JSONL record per MCP tool call to a log file,
// keeping stdout clean for the stdio transport.
package mcplog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// Entry is one logged tool call.
type Entry struct {
	Ts            string         `json:"ts"`
	Tool          string         `json:"tool"`
	Params        map[string]any `json:"params"`
	DurationMs    int64          `json:"duration_ms"`
	ResponseBytes int            `json:"response_bytes"`
	IsError       bool           `json:"is_error,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// Logger appends entries to a file. Safe for concurrent use. A nil *Logger
// is valid and drops every write, so callers never branch on enablement.
type Logger struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// New opens path for append, creating parent directories. An empty path
// returns a nil logger (logging disabled).
func New(path string) (*Logger, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create mcp log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open mcp log file: %w", err)
	}
	return &Logger{f: f, enc: json.NewEncoder(f)}, nil
}

// Write appends one entry. Log failures never affect tool results; callers
// discard the error.
func (l *Logger) Write(e Entry) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(e)
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// SanitizeParams truncates long string arguments to their length so large
// payloads never land in the log.
func SanitizeParams(args map[string]any) map[string]any {
	const maxString = 64
	out := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok && len(s) > maxString {
			out[k+"_len"] = len(s)
			continue
		}
		out[k] = v
	}
	return out
}

// ResponseBytes measures a result's serialized content size.
func ResponseBytes(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	b, err := json.Marshal(result.Content)
	if err != nil {
		return 0
	}
	return len(b)
}

// Now is a replaceable clock for tests.
var Now = func() time.Time { return time.Now() }
