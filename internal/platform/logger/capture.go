package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
)

// Buffer is a concurrency-safe io.Writer that collects JSON log lines. It is
// meant for tests that assert on emitted logs.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything written so far.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Entries decodes each written line. Lines that are not JSON objects are skipped.
func (b *Buffer) Entries() []map[string]any {
	var entries []map[string]any
	sc := bufio.NewScanner(strings.NewReader(b.String()))
	for sc.Scan() {
		var e map[string]any
		if err := json.Unmarshal(sc.Bytes(), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

// Messages returns the "msg" field of every entry in order.
func (b *Buffer) Messages() []string {
	var msgs []string
	for _, e := range b.Entries() {
		if m, ok := e[slog.MessageKey].(string); ok {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// NewCapture returns a debug-level JSON logger writing into a fresh Buffer.
func NewCapture() (*slog.Logger, *Buffer) {
	b := &Buffer{}
	return New(b, "debug"), b
}
