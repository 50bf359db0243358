package coordinator

import "sync/atomic"

// ResizeRequest is the most recent framebuffer size the window thread has
// observed but the simulation thread has not yet consumed.
type ResizeRequest struct {
	Width  uint32
	Height uint32
}

// resizeCell is a single-slot mailbox: the window thread stores into it and
// the simulation thread swaps it for nil once per tick, mirroring the
// original's AtomicCell<Option<ResizeEvent>> (store overwrites, swap drains).
type resizeCell struct {
	value atomic.Pointer[ResizeRequest]
}

func (c *resizeCell) store(width, height uint32) {
	c.value.Store(&ResizeRequest{Width: width, Height: height})
}

// take returns the pending request and clears it, or nil if none is queued.
func (c *resizeCell) take() *ResizeRequest {
	return c.value.Swap(nil)
}
