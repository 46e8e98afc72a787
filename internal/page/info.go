package page

// Info is a snapshot of host-page state: everything discussion identity and
// frame addresses are derived from. Adapters fill it either by asking a live
// page (relay shim) or by parsing fetched HTML.
type Info struct {
	// URL is the full page address as loaded. It may still carry the
	// one-shot session seed parameter; consumers strip it themselves.
	URL string

	Title       string
	OGTitle     string
	Description string

	// Pathname is the URL path component, kept separate because live pages
	// report it directly.
	Pathname string
}
