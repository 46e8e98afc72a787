package host

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gisco/internal/logging"
	"gisco/internal/observability"
	"gisco/internal/page"
	"gisco/internal/session"
	"gisco/internal/widget"
)

// Options configures an embedding host.
type Options struct {
	Surface  Surface
	Sessions *session.Store

	// RemoteOrigin is the widget service origin. It is the frame source,
	// the filter for inbound messages, and the target for outbound posts.
	// Defaults to widget.DefaultRemoteOrigin.
	RemoteOrigin string

	// ElementID, when set, rides the origin parameter as a fragment so the
	// remote can link back to the embedding element.
	ElementID string

	Logger  logging.Logger
	Metrics *observability.MetricsCollector
	Tracer  *observability.TracerProvider

	// OnMetadata receives raw discussion metadata payloads when the active
	// configuration has EmitMetadata set.
	OnMetadata func(json.RawMessage)
}

// Host owns one widget embedding on one page: it establishes the session,
// creates and replaces the frame, pushes configuration, and reacts to
// signals coming back from the remote widget.
//
// A host is either unattached (no frame) or attached (one live frame). The
// first ApplyConfig attaches; later calls update the live frame in place.
// Remote auth failures tear the frame down and attach a fresh one.
type Host struct {
	surface      Surface
	sessions     *session.Store
	remoteOrigin string
	elementID    string
	logger       logging.Logger
	metrics      *observability.MetricsCollector
	tracer       *observability.TracerProvider
	onMetadata   func(json.RawMessage)

	mu       sync.Mutex
	cfg      widget.Config
	info     page.Info
	frame    Frame
	unlisten func()
	attached bool
	closed   bool
}

// New binds a host to a page. The page is described once up front so the
// session can be established: a seed parameter in the address is captured
// and the address rewritten before anything else observes it.
func New(ctx context.Context, opts Options) (*Host, error) {
	if opts.Surface == nil {
		return nil, fmt.Errorf("surface is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}

	remoteOrigin := strings.TrimSuffix(opts.RemoteOrigin, "/")
	if remoteOrigin == "" {
		remoteOrigin = widget.DefaultRemoteOrigin
	}

	h := &Host{
		surface:      opts.Surface,
		sessions:     opts.Sessions,
		remoteOrigin: remoteOrigin,
		elementID:    opts.ElementID,
		logger:       logging.WithComponent(opts.Logger, "Host"),
		metrics:      opts.Metrics,
		tracer:       opts.Tracer,
		onMetadata:   opts.OnMetadata,
	}

	info, err := h.surface.DescribePage(ctx)
	if err != nil {
		return nil, fmt.Errorf("describe page: %w", err)
	}

	cleaned, replaced := h.sessions.Initialize(info.URL)
	if replaced {
		if err := h.surface.ReplaceLocation(ctx, cleaned); err != nil {
			h.logger.Warn("failed to rewrite page address: %v", err)
		}
		info.URL = cleaned
	}
	h.info = info

	return h, nil
}

// ApplyConfig normalizes and validates cfg, then makes it the active
// configuration: the first call creates the frame, later calls post a
// configuration update into the live frame. The frame address is computed
// only at attachment; updates never reload the frame.
func (h *Host) ApplyConfig(ctx context.Context, cfg widget.Config) error {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return fmt.Errorf("host is closed")
	}

	spanName := observability.SpanConfigUpdate
	if !h.attached {
		spanName = observability.SpanWidgetAttach
	}
	var span trace.Span
	if h.tracer != nil {
		ctx, span = h.tracer.StartSpan(ctx, spanName,
			observability.WidgetAttrs(cfg.Repo, string(cfg.Mapping), cfg.Theme)...)
		defer span.End()
	}

	var err error
	if !h.attached {
		err = h.attachLocked(ctx, cfg, false)
	} else {
		err = h.postConfigLocked(ctx, cfg)
	}
	if err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}

	h.cfg = cfg
	return nil
}

// attachLocked creates a frame for cfg. The page is re-described first:
// titles and metadata may have changed since the last look.
func (h *Host) attachLocked(ctx context.Context, cfg widget.Config, reembed bool) error {
	info, err := h.surface.DescribePage(ctx)
	if err != nil {
		return fmt.Errorf("describe page: %w", err)
	}
	h.info = info

	address := widget.BuildAddress(h.remoteOrigin, cfg, info, h.sessions.Token(), h.elementID)
	frame, err := h.surface.CreateFrame(ctx, FrameOptions{Address: address, Loading: cfg.Loading})
	if err != nil {
		return fmt.Errorf("create frame: %w", err)
	}

	// One subscription per host; it survives re-embeds and is removed only
	// on Close.
	if h.unlisten == nil {
		remove, err := h.surface.Listen(h.handleMessage)
		if err != nil {
			if destroyErr := frame.Destroy(ctx); destroyErr != nil {
				h.logger.Warn("failed to destroy orphaned frame: %v", destroyErr)
			}
			return fmt.Errorf("listen for messages: %w", err)
		}
		h.unlisten = remove
	}

	h.frame = frame
	h.attached = true
	h.metrics.RecordAttach(ctx, string(cfg.Mapping), reembed)
	h.logger.Info("widget attached: %s", address)
	return nil
}

// postConfigLocked pushes cfg into the live frame through the message
// channel.
func (h *Host) postConfigLocked(ctx context.Context, cfg widget.Config) error {
	info, err := h.surface.DescribePage(ctx)
	if err != nil {
		return fmt.Errorf("describe page: %w", err)
	}
	h.info = info

	data, err := widget.EncodeUpdate(widget.NewSetConfig(cfg, info))
	if err != nil {
		return fmt.Errorf("encode config update: %w", err)
	}
	if err := h.frame.Post(ctx, data, h.remoteOrigin); err != nil {
		return fmt.Errorf("post config update: %w", err)
	}

	h.metrics.RecordConfigUpdate(ctx)
	h.logger.Debug("configuration update posted")
	return nil
}

// reembedLocked replaces the frame under the current configuration. Used
// after session invalidation: the new address carries no session token.
func (h *Host) reembedLocked(ctx context.Context) {
	if h.frame != nil {
		if err := h.frame.Destroy(ctx); err != nil {
			h.logger.Warn("failed to destroy frame: %v", err)
		}
		h.frame = nil
	}
	h.attached = false

	if err := h.attachLocked(ctx, h.cfg, true); err != nil {
		h.logger.Error("failed to re-embed widget: %v", err)
	}
}

// Attached reports whether a frame is currently live.
func (h *Host) Attached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attached
}

// Config returns the active configuration.
func (h *Host) Config() widget.Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg
}

// PageInfo returns the page metadata from the most recent description.
func (h *Host) PageInfo() page.Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.info
}

// Close removes the message subscription and destroys the frame. The host
// cannot be reused afterwards.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if h.unlisten != nil {
		h.unlisten()
		h.unlisten = nil
	}

	var err error
	if h.frame != nil {
		err = h.frame.Destroy(ctx)
		h.frame = nil
	}
	h.attached = false
	return err
}
