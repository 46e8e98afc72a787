package widget

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"gisco/internal/page"
)

// SetConfig is the outbound configuration-update payload. Unlike the frame
// address, flags ride as JSON booleans and the discussion number as an
// integer.
type SetConfig struct {
	Repo             string `json:"repo"`
	RepoID           string `json:"repoId"`
	Category         string `json:"category"`
	CategoryID       string `json:"categoryId"`
	Term             string `json:"term"`
	Number           int    `json:"number"`
	ReactionsEnabled bool   `json:"reactionsEnabled"`
	EmitMetadata     bool   `json:"emitMetadata"`
	InputPosition    string `json:"inputPosition"`
	Theme            string `json:"theme"`
	Lang             string `json:"lang"`
}

// NewSetConfig derives the update payload for cfg against the current page
// state. A non-numeric term under number mapping becomes 0.
func NewSetConfig(cfg Config, info page.Info) SetConfig {
	number, _ := strconv.Atoi(ResolveNumber(cfg.Mapping, cfg.Term))
	return SetConfig{
		Repo:             cfg.Repo,
		RepoID:           cfg.RepoID,
		Category:         cfg.Category,
		CategoryID:       cfg.CategoryID,
		Term:             ResolveTerm(cfg.Mapping, info, cfg.Term),
		Number:           number,
		ReactionsEnabled: cfg.ReactionsEnabled,
		EmitMetadata:     cfg.EmitMetadata,
		InputPosition:    cfg.InputPosition,
		Theme:            cfg.Theme,
		Lang:             cfg.Lang,
	}
}

type updatePayload struct {
	SetConfig *SetConfig `json:"setConfig,omitempty"`
}

type outboundEnvelope struct {
	Giscus updatePayload `json:"giscus"`
}

// EncodeUpdate wraps a setConfig payload in the tagged cross-frame envelope.
func EncodeUpdate(sc SetConfig) ([]byte, error) {
	return json.Marshal(outboundEnvelope{Giscus: updatePayload{SetConfig: &sc}})
}

// Signal is the remote widget's status payload. Fields beyond these two are
// opaque metadata; DecodeSignal hands the raw payload back for pass-through.
type Signal struct {
	ResizeHeight *float64 `json:"resizeHeight,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// DecodeSignal parses an inbound cross-frame payload. ok is false when the
// payload is not an object carrying the protocol tag; callers drop such
// messages without logging.
func DecodeSignal(data []byte) (sig Signal, raw json.RawMessage, ok bool) {
	var envelope struct {
		Giscus json.RawMessage `json:"giscus"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Signal{}, nil, false
	}

	trimmed := strings.TrimSpace(string(envelope.Giscus))
	if trimmed == "" || !strings.HasPrefix(trimmed, "{") {
		return Signal{}, nil, false
	}
	if err := json.Unmarshal(envelope.Giscus, &sig); err != nil {
		return Signal{}, nil, false
	}
	return sig, envelope.Giscus, true
}

// HeightPixels validates and rounds a resize request. Heights must be finite
// and non-negative; anything else reports ok=false and is dropped.
func (s Signal) HeightPixels() (int, bool) {
	if s.ResizeHeight == nil {
		return 0, false
	}
	v := *s.ResizeHeight
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return int(math.Round(v)), true
}
