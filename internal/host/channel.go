package host

import (
	"context"

	"gisco/internal/widget"
)

// handleMessage processes one cross-frame message. The page's message
// channel is shared with unrelated scripts, so anything not from the remote
// origin or not carrying the protocol tag is dropped without logging.
func (h *Host) handleMessage(msg Message) {
	if msg.Origin != h.remoteOrigin {
		return
	}

	sig, raw, ok := widget.DecodeSignal(msg.Data)
	if !ok {
		return
	}

	ctx := context.Background()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.frame == nil {
		return
	}

	handled := false

	if sig.ResizeHeight != nil {
		handled = true
		if px, ok := sig.HeightPixels(); ok {
			h.metrics.RecordSignal(ctx, "resize")
			if err := h.frame.SetHeight(ctx, px); err != nil {
				h.logger.Warn("failed to resize frame to %dpx: %v", px, err)
			}
		} else {
			h.logger.Warn("ignoring invalid resize height %v", *sig.ResizeHeight)
		}
	}

	if sig.Error != "" {
		handled = true
		h.metrics.RecordSignal(ctx, "error")
		h.handleErrorLocked(ctx, sig.Error)
	}

	if !handled && h.cfg.EmitMetadata && h.onMetadata != nil {
		h.metrics.RecordSignal(ctx, "metadata")
		h.onMetadata(raw)
	}
}

// handleErrorLocked reacts to a remote error report. Auth failures discard
// the session and re-embed so the widget falls back to the signed-out view;
// a missing discussion is expected and only worth a warning.
func (h *Host) handleErrorLocked(ctx context.Context, message string) {
	class := widget.Classify(message)
	h.metrics.RecordWidgetError(ctx, class.String())

	switch class {
	case widget.ClassAuthFailure:
		if h.sessions.InvalidateIfExpired(message) {
			h.reembedLocked(ctx)
		}
	case widget.ClassMissingDiscussion:
		h.logger.Warn("%s. A new discussion will be created if a comment/reaction is submitted.", message)
	default:
		h.logger.Error("%s. %s", message, widget.ReportSuggestion)
	}
}
