package constants

const (
	ConfigName   = "config"
	ConfigFormat = "yaml"
	EnvPrefix    = "COGNISCREEN"

	// KeyPrefix namespaces every key written to the key-value store.
	KeyPrefix = "cogniscreen"

	// HeaderClientID scopes drafts, sessions and history to one browser or
	// device, the way local storage is scoped to an origin.
	HeaderClientID = "X-Client-Id"
)
