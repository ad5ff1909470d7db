package retry

import (
	"fmt"
	"math"
	"time"

	"git.home.luguber.info/inful/tccollector/internal/config"
)

const (
	defaultInitial     = 5 * time.Second
	defaultMax         = 30 * time.Minute
	defaultMultiplier  = 2.0
	defaultMaxAttempts = 3
)

// Policy encapsulates the attempt budget and backoff for collection jobs.
// It is immutable after construction.
type Policy struct {
	Mode        config.RetryBackoffMode `json:"mode"`        // fixed|linear|exponential
	Initial     time.Duration           `json:"initial"`     // delay before the first retry
	Max         time.Duration           `json:"max"`         // cap for growth
	Multiplier  float64                 `json:"multiplier"`  // growth factor for exponential mode
	MaxAttempts int                     `json:"maxAttempts"` // total attempts, including the first
}

// DefaultPolicy returns the collection default: exponential from 5s, doubling, 3 attempts.
func DefaultPolicy() Policy {
	return Policy{
		Mode:        config.RetryBackoffExponential,
		Initial:     defaultInitial,
		Max:         defaultMax,
		Multiplier:  defaultMultiplier,
		MaxAttempts: defaultMaxAttempts,
	}
}

// Once is the policy for manual triggers: a single attempt, no retry.
func Once() Policy {
	p := DefaultPolicy()
	p.MaxAttempts = 1
	return p
}

// NewPolicy builds a policy from raw config fields; zero/invalid values fall back to defaults.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDelay time.Duration, multiplier float64, maxAttempts int) Policy {
	p := DefaultPolicy()
	if maxAttempts > 0 {
		p.MaxAttempts = maxAttempts
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDelay > 0 {
		p.Max = maxDelay
	}
	if multiplier >= 1 {
		p.Multiplier = multiplier
	}
	switch mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = mode
	default:
		// unknown -> keep default
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// FromConfig builds the policy described by the retry section of the config.
func FromConfig(cfg config.RetryConfig) Policy {
	return NewPolicy(cfg.Backoff, cfg.InitialDelay.Duration(), cfg.MaxDelay.Duration(), cfg.Multiplier, cfg.MaxAttempts)
}

// Delay returns the wait before the next attempt after attemptsMade failed
// attempts (1-based: after the first failure => 1).
func (p Policy) Delay(attemptsMade int) time.Duration {
	if attemptsMade <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Mode {
	case config.RetryBackoffFixed:
		d = p.Initial
	case config.RetryBackoffLinear:
		d = time.Duration(attemptsMade) * p.Initial
	default:
		f := float64(p.Initial) * math.Pow(p.Multiplier, float64(attemptsMade-1))
		if f > float64(p.Max) || math.IsInf(f, 0) {
			return p.Max
		}
		d = time.Duration(f)
	}
	if d > p.Max {
		return p.Max
	}
	return d
}

// CanRetry reports whether another attempt fits the budget after attemptsMade attempts.
func (p Policy) CanRetry(attemptsMade int) bool {
	return attemptsMade < p.MaxAttempts
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be >=1")
	}
	if p.Mode == config.RetryBackoffExponential && p.Multiplier < 1 {
		return fmt.Errorf("multiplier must be >=1")
	}
	return nil
}
