package config

// Config is the full CLI configuration, merged from the global config file
// and environment overrides.
type Config struct {
	Version string `yaml:"version" mapstructure:"version"`

	// Remote backend connection
	Remote RemoteConfig `yaml:"remote" mapstructure:"remote"`

	// Local storage settings
	Local LocalConfig `yaml:"local" mapstructure:"local"`

	// Search defaults
	Search SearchConfig `yaml:"search" mapstructure:"search"`

	// Activity feed server settings
	Serve ServeConfig `yaml:"serve" mapstructure:"serve"`
}

// RemoteConfig points the CLI at a hosted backend project.
type RemoteConfig struct {
	URL    string `yaml:"url" mapstructure:"url"`
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	// UserID pins the acting user, overriding the access token's claim
	UserID string `yaml:"user_id" mapstructure:"user_id"`
	Email  string `yaml:"email" mapstructure:"email"`
}

// LocalConfig configures the embedded database.
type LocalConfig struct {
	// Path to the database file; empty means ~/.unites/notes.db
	Path string `yaml:"path" mapstructure:"path"`
	// Force local mode even when remote credentials are configured
	Force bool `yaml:"force" mapstructure:"force"`
}

// SearchConfig holds semantic search defaults.
type SearchConfig struct {
	Limit     int     `yaml:"limit" mapstructure:"limit"`
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
}

// ServeConfig configures the activity feed HTTP server.
type ServeConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}
