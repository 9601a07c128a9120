package app

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger emits one flat JSON object per line: ts, level, msg, then the
// caller's fields inlined. Writes are serialized so the file logger can be
// shared across the poll goroutines.
type Logger struct {
	mu  sync.Mutex
	out io.Writer
}

func NewLogger(out io.Writer) *Logger {
	return &Logger{out: out}
}

// NewFileLogger logs to a file under the state dir. The TUI owns stdout, so
// logs never go there.
func NewFileLogger(stateDir string) (*Logger, func() error, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(stateDir, "taskpilot.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return NewLogger(f), f.Close, nil
}

func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.write("info", message, fields)
}

func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.write("error", message, fields)
}

func (l *Logger) write(level, message string, fields map[string]interface{}) {
	if l == nil || l.out == nil {
		return
	}
	entry := map[string]interface{}{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": level,
		"msg":   message,
	}
	for k, v := range fields {
		if _, reserved := entry[k]; reserved {
			continue
		}
		entry[k] = v
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	payload = append(payload, '\n')
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(payload)
}
