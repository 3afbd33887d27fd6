// internal/workers/communication/notify-match/config.go
package notifymatch

import "time"

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	AWSRegion    string
	// Matches below this score are not worth a notification.
	MinMatchScore int
	// Matches at or above this score also go out by SMS.
	SMSPriorityThreshold int
	Timeout              time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MinMatchScore:        70,
		SMSPriorityThreshold: 90,
		Timeout:              30 * time.Second,
	}
}
