package config

// DefaultConfig returns the built-in configuration used when no config file
// exists.
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Search: SearchConfig{
			Limit:     10,
			Threshold: 0.3,
		},
		Serve: ServeConfig{
			Addr: "127.0.0.1:8787",
		},
	}
}
