package utils

import (
	"bytes"
	"io"
	"sync"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

// LogInterceptor prefixes every complete line written through it with a
// bracketed local timestamp, e.g. `[2024-01-02 15:04:05] msg`.
// Partial lines are held until their newline arrives or Close is called.
type LogInterceptor struct {
	mu     sync.Mutex
	target io.Writer
	buf    bytes.Buffer
	now    func() time.Time
}

func NewLogInterceptor(target io.Writer) *LogInterceptor {
	return &LogInterceptor{target: target, now: time.Now}
}

// Write always reports len(p) on success, since callers account for their own bytes.
func (i *LogInterceptor) Write(p []byte) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.buf.Write(p)
	for {
		idx := bytes.IndexByte(i.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := i.buf.Next(idx + 1)
		if err := i.writeLine(bytes.TrimRight(line, "\r\n")); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (i *LogInterceptor) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.buf.Len() == 0 {
		return nil
	}
	rest := bytes.Clone(i.buf.Bytes())
	i.buf.Reset()
	return i.writeLine(rest)
}

func (i *LogInterceptor) writeLine(line []byte) error {
	out := make([]byte, 0, len(line)+len(timestampLayout)+4)
	out = append(out, '[')
	out = i.now().AppendFormat(out, timestampLayout)
	out = append(out, "] "...)
	out = append(out, line...)
	out = append(out, '\n')
	_, err := i.target.Write(out)
	return err
}
