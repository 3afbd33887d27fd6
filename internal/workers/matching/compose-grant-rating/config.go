// internal/workers/matching/compose-grant-rating/config.go
package composegrantrating

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
