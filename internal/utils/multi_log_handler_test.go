package utils

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiLogHandler(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	debugH := slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	warnH := slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn})

	logger := slog.New(NewMultiLogHandler(debugH, warnH)).With("component", "sync")

	logger.Debug("batch start")
	logger.Warn("upload failed", "key", "wp-content/uploads/a.jpg")

	assert.Contains(t, debugBuf.String(), "batch start")
	assert.Contains(t, debugBuf.String(), "upload failed")
	assert.NotContains(t, warnBuf.String(), "batch start")
	assert.Contains(t, warnBuf.String(), "component=sync")
	assert.Contains(t, warnBuf.String(), "key=wp-content/uploads/a.jpg")
}
