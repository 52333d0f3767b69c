package vamana

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return l, &buf
}

func TestNewLoggerNilHandler(t *testing.T) {
	l := NewLogger(nil)
	require.NotNil(t, l.Logger)
}

func TestNoopLoggerDiscards(t *testing.T) {
	l := NoopLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}

func TestLoggerLogWrite(t *testing.T) {
	l, buf := newBufferLogger()
	ctx := context.Background()

	l.LogWrite(ctx, 5, 20, time.Second, nil)
	assert.Contains(t, buf.String(), "graph write completed")
	assert.Contains(t, buf.String(), "nodes=5")

	buf.Reset()
	l.LogWrite(ctx, 0, 0, time.Second, errors.New("boom"))
	assert.Contains(t, buf.String(), "graph write failed")
	assert.Contains(t, buf.String(), "boom")
}

func TestLoggerLogPrune(t *testing.T) {
	l, buf := newBufferLogger()
	ctx := context.Background()

	l.LogPrune(ctx, 0, 0, 0)
	assert.Empty(t, buf.String())

	l.LogPrune(ctx, 2, 20, 10)
	assert.Contains(t, buf.String(), "neighbor lists pruned")
	assert.Contains(t, buf.String(), "neighbors_before=20")
}

func TestLoggerLogSnapshot(t *testing.T) {
	l, buf := newBufferLogger()
	ctx := context.Background()

	l.LogSnapshot(ctx, "/data/index.vamana", nil)
	assert.Contains(t, buf.String(), "snapshot saved")

	buf.Reset()
	l.LogSnapshot(ctx, "/data/index.vamana", errors.New("disk full"))
	assert.Contains(t, buf.String(), "snapshot failed")
}

func TestLoggerLogArchive(t *testing.T) {
	l, buf := newBufferLogger()
	ctx := context.Background()

	l.LogArchive(ctx, "idx", 3, 4096, nil)
	assert.Contains(t, buf.String(), "archive uploaded")
	assert.Contains(t, buf.String(), "parts=3")

	buf.Reset()
	l.LogArchive(ctx, "idx", 0, 0, errors.New("boom"))
	assert.Contains(t, buf.String(), "archive failed")
}

func TestLoggerFieldHelpers(t *testing.T) {
	l, buf := newBufferLogger()

	l.WithDimension(128).WithCount(10).Info("build started")
	out := buf.String()
	assert.Contains(t, out, "dimension=128")
	assert.Contains(t, out, "count=10")
}
