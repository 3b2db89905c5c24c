// internal/workers/venue/list-suggestions/config.go
package listsuggestions

import "time"

type Config struct {
	Timeout      time.Duration
	DefaultLimit int
	MaxLimit     int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      10 * time.Second,
		DefaultLimit: 10,
		MaxLimit:     100,
	}
}
