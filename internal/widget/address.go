package widget

import (
	"net/url"
	"strconv"
	"strings"

	"gisco/internal/page"
)

const (
	// DefaultRemoteOrigin is the hosted widget service. It is the frame
	// source origin, the allow-list for inbound messages, and the required
	// target for outbound posts. Never a wildcard.
	DefaultRemoteOrigin = "https://giscus.app"

	// SessionParam is the one-shot URL query parameter that seeds a session
	// token into a freshly loaded page.
	SessionParam = "giscus"

	// SessionStorageKey is the persistent-storage key holding the
	// JSON-encoded session token.
	SessionStorageKey = "giscus-session"
)

// CleanAddress strips the one-shot session seed parameter from a page
// address. The remaining query parameters keep their original order so
// url-mapped terms stay deterministic.
func CleanAddress(address string) string {
	u, err := url.Parse(address)
	if err != nil {
		return address
	}
	if u.RawQuery == "" {
		return u.String()
	}

	parts := strings.Split(u.RawQuery, "&")
	kept := parts[:0]
	for _, part := range parts {
		if part == "" {
			continue
		}
		key := part
		if i := strings.IndexByte(part, '='); i >= 0 {
			key = part[:i]
		}
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
		if key == SessionParam {
			continue
		}
		kept = append(kept, part)
	}
	u.RawQuery = strings.Join(kept, "&")
	return u.String()
}

type queryParam struct {
	key   string
	value string
}

// BuildAddress produces the exact address the embedded frame loads from.
// Parameters appear in a fixed insertion order and unset optional fields
// serialize as empty strings, never omitted. The address is computed only at
// (re-)attachment; live frames are updated through the message channel.
func BuildAddress(remoteOrigin string, cfg Config, info page.Info, sessionToken, elementID string) string {
	if remoteOrigin == "" {
		remoteOrigin = DefaultRemoteOrigin
	}

	cleaned := CleanAddress(info.URL)
	origin := cleaned
	if elementID != "" {
		origin += "#" + elementID
	}

	params := []queryParam{
		{"origin", origin},
		{"session", sessionToken},
		{"repo", cfg.Repo},
		{"repoId", cfg.RepoID},
		{"category", cfg.Category},
		{"categoryId", cfg.CategoryID},
		{"term", ResolveTerm(cfg.Mapping, info, cfg.Term)},
		{"number", ResolveNumber(cfg.Mapping, cfg.Term)},
		{"reactionsEnabled", strconv.FormatBool(cfg.ReactionsEnabled)},
		{"emitMetadata", strconv.FormatBool(cfg.EmitMetadata)},
		{"inputPosition", cfg.InputPosition},
		{"theme", cfg.Theme},
		{"description", info.Description},
	}

	var b strings.Builder
	b.WriteString(strings.TrimSuffix(remoteOrigin, "/"))
	if cfg.Lang != "" {
		b.WriteByte('/')
		b.WriteString(cfg.Lang)
	}
	b.WriteString("/widget?")
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}
