package config

import "git.home.luguber.info/inful/tccollector/internal/foundation/normalization"

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

var retryBackoffNormalizer = normalization.NewEnumNormalizer("retry backoff mode", map[string]RetryBackoffMode{
	"fixed":       RetryBackoffFixed,
	"linear":      RetryBackoffLinear,
	"exponential": RetryBackoffExponential,
}, "")

// NormalizeRetryBackoff converts arbitrary user input (case-insensitive) into a typed mode, returning empty string for unknown.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	return retryBackoffNormalizer.Normalize(raw)
}

// RetryConfig configures the queue retry policy for scheduled jobs.
type RetryConfig struct {
	Backoff      RetryBackoffMode `yaml:"backoff"`
	InitialDelay Duration         `yaml:"initial_delay"`
	MaxDelay     Duration         `yaml:"max_delay"`
	Multiplier   float64          `yaml:"multiplier"`
	MaxAttempts  int              `yaml:"max_attempts"` // total attempts, first one included
}
