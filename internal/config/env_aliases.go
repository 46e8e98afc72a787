package config

// DefaultEnvAliases returns the canonical alias map used across binaries to
// resolve giscus-compatible environment variable names.
func DefaultEnvAliases() map[string][]string {
	aliases := map[string][]string{
		"GISCO_REMOTE_ORIGIN":     {"GISCUS_ORIGIN"},
		"GISCO_REPO":              {"GISCUS_REPO"},
		"GISCO_REPO_ID":           {"GISCUS_REPO_ID"},
		"GISCO_CATEGORY":          {"GISCUS_CATEGORY"},
		"GISCO_CATEGORY_ID":       {"GISCUS_CATEGORY_ID"},
		"GISCO_MAPPING":           {"GISCUS_MAPPING"},
		"GISCO_TERM":              {"GISCUS_TERM"},
		"GISCO_THEME":             {"GISCUS_THEME"},
		"GISCO_LANG":              {"GISCUS_LANG"},
		"GISCO_INPUT_POSITION":    {"GISCUS_INPUT_POSITION"},
		"GISCO_REACTIONS_ENABLED": {"GISCUS_REACTIONS_ENABLED"},
		"GISCO_EMIT_METADATA":     {"GISCUS_EMIT_METADATA"},
	}

	copy := make(map[string][]string, len(aliases))
	for key, list := range aliases {
		copy[key] = append([]string(nil), list...)
	}
	return copy
}

// DefaultEnvLookupWithAliases composes DefaultEnvLookup with DefaultEnvAliases.
func DefaultEnvLookupWithAliases() EnvLookup {
	return AliasEnvLookup(DefaultEnvLookup, DefaultEnvAliases())
}
