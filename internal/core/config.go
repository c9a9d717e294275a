package core

import "time"

// HostConfig holds engine settings shared by operator and worker hosts.
type HostConfig struct {
	MemoryLimitMB    int           // per-runtime heap cap, 0 for unlimited
	ExecutionTimeout time.Duration // watchdog per evaluation, 0 disables it
	AwaitTimeout     time.Duration // bound on promise settling and timer draining
	MaxLogEntries    int           // captured console entries per execution
}

const (
	DefaultAwaitTimeout  = 30 * time.Second
	DefaultMaxLogEntries = 1000
	MaxLogMessageSize    = 4096
)

// WithDefaults fills zero fields with their defaults.
func (c HostConfig) WithDefaults() HostConfig {
	if c.AwaitTimeout <= 0 {
		c.AwaitTimeout = DefaultAwaitTimeout
	}
	if c.MaxLogEntries <= 0 {
		c.MaxLogEntries = DefaultMaxLogEntries
	}
	return c
}
