package resource

import (
	"context"
	"io"
)

// ThrottledWriter charges every write against the controller's IO budget
// before passing it through.
type ThrottledWriter struct {
	ctx context.Context
	c   *Controller
	w   io.Writer
}

// NewThrottledWriter wraps w. With a nil controller the wrapper is free.
func NewThrottledWriter(ctx context.Context, c *Controller, w io.Writer) *ThrottledWriter {
	return &ThrottledWriter{ctx: ctx, c: c, w: w}
}

func (t *ThrottledWriter) Write(p []byte) (int, error) {
	if err := t.c.AcquireIO(t.ctx, len(p)); err != nil {
		return 0, err
	}
	return t.w.Write(p)
}

// ThrottledReader charges reads by the buffer offered. Short reads are
// overcharged; the budget errs on the strict side.
type ThrottledReader struct {
	ctx context.Context
	c   *Controller
	r   io.Reader
}

// NewThrottledReader wraps r. With a nil controller the wrapper is free.
func NewThrottledReader(ctx context.Context, c *Controller, r io.Reader) *ThrottledReader {
	return &ThrottledReader{ctx: ctx, c: c, r: r}
}

func (t *ThrottledReader) Read(p []byte) (int, error) {
	if err := t.c.AcquireIO(t.ctx, len(p)); err != nil {
		return 0, err
	}
	return t.r.Read(p)
}
