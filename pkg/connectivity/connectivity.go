package connectivity

import (
	"context"
	"net"
	"time"
)

// Checker reports whether outbound network access currently looks possible.
// A false result is a soft condition: callers skip work and retry later.
type Checker interface {
	Available(ctx context.Context) bool
}

// Always reports the network as available
type Always struct{}

func (Always) Available(context.Context) bool { return true }

// Func adapts a function to the Checker interface
type Func func(ctx context.Context) bool

func (f Func) Available(ctx context.Context) bool { return f(ctx) }

// TCPProbe treats the network as available when a TCP connection to Address succeeds
type TCPProbe struct {
	// Address is the TCP address to connect to (e.g., "releva.ai:443")
	Address string

	// Timeout is the connection timeout (default: 3 seconds)
	Timeout time.Duration
}

// NewTCPProbe creates a TCP probe for address
func NewTCPProbe(address string) *TCPProbe {
	return &TCPProbe{
		Address: address,
		Timeout: 3 * time.Second,
	}
}

// Available dials the probe address
func (p *TCPProbe) Available(ctx context.Context) bool {
	dialer := &net.Dialer{
		Timeout: p.Timeout,
	}

	conn, err := dialer.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// WithTimeout sets the connection timeout
func (p *TCPProbe) WithTimeout(timeout time.Duration) *TCPProbe {
	p.Timeout = timeout
	return p
}
