package driven

// ConfigStore is the persisted key/value view of config.toml.
// Keys use dot notation for nested tables, e.g. "retry.max_attempts".
// Typed getters return the zero value for missing or mistyped keys.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int

	// GetFloat accepts integers as well as floats.
	GetFloat(key string) float64

	// Set stores a value and persists the file immediately.
	Set(key string, value any) error
}
