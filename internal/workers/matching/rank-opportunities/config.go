// internal/workers/matching/rank-opportunities/config.go
package rankopportunities

import "time"

type Config struct {
	MinVisibleScore int
	MaxItems        int
	Concurrency     int
	Timeout         time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MinVisibleScore: 50,
		MaxItems:        20,
		Concurrency:     8,
		Timeout:         30 * time.Second,
	}
}
