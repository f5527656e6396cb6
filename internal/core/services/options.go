package services

import "time"

// Default retry budgets used when no option overrides them.
const (
	DefaultAllocationMaxRetries = 10
	DefaultPostingMaxRetries    = 3
	DefaultIdempotencyKeyMaxLen = 255
)

// Option configures a service at construction time.
type Option func(*serviceOptions)

type serviceOptions struct {
	now                  func() time.Time
	allocationMaxRetries int
	postingMaxRetries    int
	idempotencyKeyMaxLen int
}

func defaultOptions() serviceOptions {
	return serviceOptions{
		now:                  func() time.Time { return time.Now().UTC() },
		allocationMaxRetries: DefaultAllocationMaxRetries,
		postingMaxRetries:    DefaultPostingMaxRetries,
		idempotencyKeyMaxLen: DefaultIdempotencyKeyMaxLen,
	}
}

func applyOptions(options []Option) serviceOptions {
	o := defaultOptions()
	for _, option := range options {
		option(&o)
	}
	return o
}

// WithClock replaces the wall clock, mainly for tests around expiration dates.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		o.now = now
	}
}

// WithAllocationMaxRetries sets how often Allocate retries after losing a counter race.
func WithAllocationMaxRetries(n int) Option {
	return func(o *serviceOptions) {
		o.allocationMaxRetries = n
	}
}

// WithPostingMaxRetries sets how often a posting is retried after a serialization
// failure or deadlock.
func WithPostingMaxRetries(n int) Option {
	return func(o *serviceOptions) {
		o.postingMaxRetries = n
	}
}

// WithIdempotencyKeyMaxLength caps the length of caller-supplied idempotency keys.
func WithIdempotencyKeyMaxLength(n int) Option {
	return func(o *serviceOptions) {
		o.idempotencyKeyMaxLen = n
	}
}
