package host

import (
	"context"

	"gisco/internal/page"
	"gisco/internal/widget"
)

// Message is a cross-frame message as observed by the page, paired with the
// origin of the window that sent it.
type Message struct {
	Origin string
	Data   []byte
}

// FrameOptions describes the frame to create for an embedding.
type FrameOptions struct {
	Address string
	Loading widget.Loading
}

// Frame is a live embedded widget frame. Implementations talk to a real
// page; calls block until the page acknowledges.
type Frame interface {
	SetHeight(ctx context.Context, px int) error
	// Post delivers data to the frame's window, restricted to targetOrigin.
	Post(ctx context.Context, data []byte, targetOrigin string) error
	Destroy(ctx context.Context) error
}

// Surface is the page a widget embeds into. The embedding host drives it;
// everything page-specific (DOM, history, frames, message events) lives
// behind this interface.
type Surface interface {
	// DescribePage reports the page's current address and metadata.
	DescribePage(ctx context.Context) (page.Info, error)
	// ReplaceLocation rewrites the page address without reloading,
	// replacing the current history entry.
	ReplaceLocation(ctx context.Context, address string) error
	CreateFrame(ctx context.Context, opts FrameOptions) (Frame, error)
	// Listen subscribes fn to cross-frame messages arriving at the page.
	// The returned remove function cancels the subscription.
	Listen(fn func(Message)) (remove func(), err error)
}
