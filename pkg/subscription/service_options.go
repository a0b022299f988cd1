package subscription

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/storefront/pkg/clock"
)

const (
	defaultJobConcurrency = 4
	defaultJobLockTTL     = 10 * time.Minute
)

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithPolicy replaces the default billing rules.
func WithPolicy(p Policy) ServiceOption {
	return func(s *service) {
		s.policy = p
	}
}

// WithClock sets the time source. Tests pass a *clock.Mock.
func WithClock(c clock.Clock) ServiceOption {
	return func(s *service) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics enables Prometheus collectors.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *service) {
		s.metrics = m
	}
}

// WithNotices sets the reminder catalogue, e.g. for another locale.
func WithNotices(n *Notices) ServiceOption {
	return func(s *service) {
		if n != nil {
			s.notices = n
		}
	}
}

// WithAppURL sets the public base URL used for checkout callbacks and the
// pay link in reminders. Without it provider checkouts are not attempted.
func WithAppURL(u string) ServiceOption {
	return func(s *service) {
		s.appURL = normalizeAppURL(u)
	}
}

// WithLocker guards Reconcile with a lease so only one replica runs it at a
// time. A non-positive ttl keeps the default.
func WithLocker(l Locker, ttl time.Duration) ServiceOption {
	return func(s *service) {
		s.locker = l
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithJobConcurrency bounds how many merchants Reconcile processes at once.
func WithJobConcurrency(n int) ServiceOption {
	return func(s *service) {
		if n > 0 {
			s.jobConcurrency = n
		}
	}
}
