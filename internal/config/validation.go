package config

import (
	"fmt"
	"net"
	"net/url"

	"github.com/hashicorp/go-multierror"

	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

// Validate checks the whole configuration and reports every problem found.
func Validate(cfg *Config) error {
	var result *multierror.Error

	if _, _, err := net.SplitHostPort(cfg.Daemon.AdminAddr); err != nil {
		result = multierror.Append(result, fmt.Errorf("daemon.admin_addr: %w", err))
	}
	if cfg.Queue.Workers < 1 {
		result = multierror.Append(result, fmt.Errorf("queue.workers must be >= 1"))
	}
	if NormalizeRetryBackoff(string(cfg.Retry.Backoff)) == "" {
		result = multierror.Append(result, fmt.Errorf("retry.backoff: unsupported mode %q", cfg.Retry.Backoff))
	}
	if cfg.Retry.MaxAttempts < 1 {
		result = multierror.Append(result, fmt.Errorf("retry.max_attempts must be >= 1"))
	}
	if cfg.Retry.Multiplier < 1 {
		result = multierror.Append(result, fmt.Errorf("retry.multiplier must be >= 1"))
	}
	if u, err := url.Parse(cfg.Sync.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("sync.base_url: %q is not an absolute URL", cfg.Sync.BaseURL))
	}
	if _, err := testcase.ParseSourceType(string(cfg.Source.Type)); err != nil {
		result = multierror.Append(result, fmt.Errorf("source.type: %w", err))
	}
	if cfg.Source.Interval < 1 {
		result = multierror.Append(result, fmt.Errorf("source.interval must be >= 1 minute"))
	}
	if cfg.Alerts.NATS.Enabled && cfg.Alerts.NATS.URL == "" {
		result = multierror.Append(result, fmt.Errorf("alerts.nats.url is required when enabled"))
	}

	return result.ErrorOrNil()
}
