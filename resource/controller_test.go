package resource

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(context.Background(), 50))
	require.NoError(t, c.AcquireMemory(context.Background(), 40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Over the hard limit.
	assert.False(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(90), c.MemoryUsage())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireMemory(ctx, 20), context.DeadlineExceeded)

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(context.Background(), 20))
	assert.Equal(t, int64(60), c.MemoryUsage())
}

func TestController_TrackingOnlyMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(context.Background(), 1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_Background(t *testing.T) {
	c := NewController(Config{MaxBackgroundWorkers: 2})

	require.NoError(t, c.AcquireBackground(context.Background()))
	require.NoError(t, c.AcquireBackground(context.Background()))

	assert.False(t, c.TryAcquireBackground())

	c.ReleaseBackground()
	assert.True(t, c.TryAcquireBackground())
}

func TestController_NilIsUnrestricted(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireMemory(context.Background(), 1<<30))
	assert.True(t, c.TryAcquireMemory(1<<30))
	c.ReleaseMemory(1 << 30)
	assert.Equal(t, int64(0), c.MemoryUsage())

	require.NoError(t, c.AcquireBackground(context.Background()))
	assert.True(t, c.TryAcquireBackground())
	c.ReleaseBackground()

	require.NoError(t, c.AcquireIO(context.Background(), 1<<30))
}

func TestController_IOBeyondBurst(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	// A request above the burst drains in installments instead of
	// failing outright.
	require.NoError(t, c.AcquireIO(context.Background(), 1<<20+100))
}

func TestController_IOCanceled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1024})

	// The bucket starts full; a second large request has to wait, and a
	// canceled context aborts that wait.
	require.NoError(t, c.AcquireIO(context.Background(), 1024))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, c.AcquireIO(ctx, 1024))
}

func TestThrottledWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewThrottledWriter(context.Background(), nil, &buf)

	n, err := w.Write([]byte("pages"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "pages", buf.String())
}

func TestThrottledWriterCanceled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1024})
	require.NoError(t, c.AcquireIO(context.Background(), 1024))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	w := NewThrottledWriter(ctx, c, &buf)
	_, err := w.Write(make([]byte, 512))
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestThrottledReader(t *testing.T) {
	r := NewThrottledReader(context.Background(), nil, strings.NewReader("chunk"))

	p := make([]byte, 8)
	n, err := r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "chunk", string(p[:n]))
}
