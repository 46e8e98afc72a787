package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"gisco/internal/host"
	"gisco/internal/page"
)

// The shim-facing RPC surface. Each method maps one host.Surface or
// host.Frame operation onto the wire.
const (
	methodPageDescribe    = "page.describe"
	methodPageReplaceLoc  = "page.replaceLocation"
	methodFrameCreate     = "frame.create"
	methodFrameSetHeight  = "frame.setHeight"
	methodFramePost       = "frame.post"
	methodFrameDestroy    = "frame.destroy"
	notificationPageEvent = "page.message"
)

type pageDescription struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	OGTitle     string `json:"ogTitle"`
	Description string `json:"description"`
	Pathname    string `json:"pathname"`
}

// DescribePage asks the shim for the page's address and metadata.
func (e *Endpoint) DescribePage(ctx context.Context) (page.Info, error) {
	raw, err := e.Call(ctx, methodPageDescribe, nil)
	if err != nil {
		return page.Info{}, err
	}
	var desc pageDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		return page.Info{}, fmt.Errorf("parse %s result: %w", methodPageDescribe, err)
	}
	return page.Info{
		URL:         desc.URL,
		Title:       desc.Title,
		OGTitle:     desc.OGTitle,
		Description: desc.Description,
		Pathname:    desc.Pathname,
	}, nil
}

// ReplaceLocation rewrites the page address without reloading.
func (e *Endpoint) ReplaceLocation(ctx context.Context, address string) error {
	_, err := e.Call(ctx, methodPageReplaceLoc, struct {
		Address string `json:"address"`
	}{Address: address})
	return err
}

// CreateFrame asks the shim to insert a widget frame into the page.
func (e *Endpoint) CreateFrame(ctx context.Context, opts host.FrameOptions) (host.Frame, error) {
	raw, err := e.Call(ctx, methodFrameCreate, struct {
		Src     string `json:"src"`
		Loading string `json:"loading"`
	}{Src: opts.Address, Loading: string(opts.Loading)})
	if err != nil {
		return nil, err
	}
	var result struct {
		FrameID string `json:"frameId"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("parse %s result: %w", methodFrameCreate, err)
	}
	if result.FrameID == "" {
		return nil, fmt.Errorf("%s returned no frame id", methodFrameCreate)
	}
	return &remoteFrame{endpoint: e, id: result.FrameID}, nil
}

// Listen subscribes fn to cross-frame messages relayed by the shim. The
// subscription survives shim reconnects.
func (e *Endpoint) Listen(fn func(host.Message)) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("listener is required")
	}

	e.subsMu.Lock()
	e.subSeq++
	id := e.subSeq
	e.subs[id] = fn
	e.subsMu.Unlock()

	remove := func() {
		e.subsMu.Lock()
		delete(e.subs, id)
		e.subsMu.Unlock()
	}
	return remove, nil
}

// remoteFrame is a widget frame living in the connected page, addressed by
// the shim-assigned frame id.
type remoteFrame struct {
	endpoint *Endpoint
	id       string
}

var _ host.Frame = (*remoteFrame)(nil)

func (f *remoteFrame) SetHeight(ctx context.Context, px int) error {
	_, err := f.endpoint.Call(ctx, methodFrameSetHeight, struct {
		FrameID string `json:"frameId"`
		Height  int    `json:"height"`
	}{FrameID: f.id, Height: px})
	return err
}

func (f *remoteFrame) Post(ctx context.Context, data []byte, targetOrigin string) error {
	_, err := f.endpoint.Call(ctx, methodFramePost, struct {
		FrameID      string          `json:"frameId"`
		Data         json.RawMessage `json:"data"`
		TargetOrigin string          `json:"targetOrigin"`
	}{FrameID: f.id, Data: json.RawMessage(data), TargetOrigin: targetOrigin})
	return err
}

func (f *remoteFrame) Destroy(ctx context.Context) error {
	_, err := f.endpoint.Call(ctx, methodFrameDestroy, struct {
		FrameID string `json:"frameId"`
	}{FrameID: f.id})
	return err
}

// Interface check; the endpoint is the Surface a relay-backed host drives.
var _ host.Surface = (*Endpoint)(nil)
