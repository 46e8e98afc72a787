package session

import (
	"encoding/json"
	"net/url"
	"sync"

	"gisco/internal/logging"
	"gisco/internal/widget"
)

// Store owns the signed session token that authenticates the viewer to the
// remote widget service. Tokens arrive exactly once as a URL query parameter
// after the OAuth round trip and are persisted JSON-encoded so later
// embeddings on other pages can reuse them.
type Store struct {
	storage Storage
	logger  logging.Logger

	mu    sync.Mutex
	token string
}

func NewStore(storage Storage, logger logging.Logger) *Store {
	return &Store{
		storage: storage,
		logger:  logging.WithComponent(logger, "Session"),
	}
}

// Initialize establishes the session for a page load. When the address
// carries a one-shot seed parameter the token is captured and persisted, and
// the returned address has the parameter and any fragment stripped so the
// token never lingers in history; replaced reports that the caller must
// adopt the cleaned address. Otherwise the persisted token, if any, is
// loaded and the address is returned untouched.
func (s *Store) Initialize(pageAddress string) (cleaned string, replaced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := url.Parse(pageAddress)
	if err != nil {
		s.logger.Warn("unparseable page address %q: %v", pageAddress, err)
		s.token = s.loadStoredLocked()
		return pageAddress, false
	}

	seed := u.Query().Get(widget.SessionParam)
	if seed == "" {
		s.token = s.loadStoredLocked()
		return pageAddress, false
	}

	s.token = seed
	encoded, err := json.Marshal(seed)
	if err == nil {
		if setErr := s.storage.Set(widget.SessionStorageKey, string(encoded)); setErr != nil {
			s.logger.Warn("failed to persist session token: %v", setErr)
		}
	}

	u.Fragment = ""
	u.RawFragment = ""
	return widget.CleanAddress(u.String()), true
}

// loadStoredLocked reads and decodes the persisted token. Undecodable state
// is removed so the next load starts clean.
func (s *Store) loadStoredLocked() string {
	stored, found, err := s.storage.Get(widget.SessionStorageKey)
	if err != nil {
		s.logger.Warn("failed to read stored session: %v", err)
		return ""
	}
	if !found {
		return ""
	}
	var token string
	if err := json.Unmarshal([]byte(stored), &token); err != nil {
		if removeErr := s.storage.Remove(widget.SessionStorageKey); removeErr != nil {
			s.logger.Warn("failed to remove stored session: %v", removeErr)
		}
		s.logger.Warn("%v. Session has been invalidated.", err)
		return ""
	}
	return token
}

// InvalidateIfExpired handles a remote authentication failure. When a
// session exists it is discarded and recreate is true: the caller should
// re-embed without a token so the widget falls back to the signed-out view.
// Without a session the failure is unexpected and only logged.
func (s *Store) InvalidateIfExpired(message string) (recreate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, found, err := s.storage.Get(widget.SessionStorageKey)
	if err != nil {
		s.logger.Warn("failed to read stored session: %v", err)
	}
	if !found && s.token == "" {
		s.logger.Error("%s. No session is stored initially. %s", message, widget.ReportSuggestion)
		return false
	}

	s.token = ""
	if err := s.storage.Remove(widget.SessionStorageKey); err != nil {
		s.logger.Warn("failed to remove stored session: %v", err)
	}
	s.logger.Warn("%s. Session has been invalidated.", message)
	return true
}

// Token returns the current session token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}
