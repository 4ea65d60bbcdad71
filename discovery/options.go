package discovery

import (
	"log/slog"
	"time"
)

// Option adjusts a Discover before it starts listening.
type Option func(Discover) Discover

// WithPortRange sets the ports announcements are served and searched on.
func WithPortRange(startPort, endPort uint16) Option {
	return func(d Discover) Discover {
		d.startPort = startPort
		d.endPort = endPort
		return d
	}
}

// WithPort is WithPortRange over a single port.
func WithPort(port uint16) Option {
	return WithPortRange(port, port)
}

// WithAttempts sets how many times the port range is searched.
func WithAttempts(attempts uint) Option {
	return func(d Discover) Discover {
		d.attempts = attempts
		return d
	}
}

// WithInterval sets the pause between searches.
func WithInterval(interval time.Duration) Option {
	return func(d Discover) Discover {
		d.interval = interval
		return d
	}
}

// WithHost sets the host searched and listened on.
func WithHost(host string) Option {
	return func(d Discover) Discover {
		d.host = host
		return d
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(d Discover) Discover {
		d.log = log
		return d
	}
}
