// Package security vets user-supplied URLs before they are stored on a
// report and copied into outgoing council email.
//
// A photo link must be http(s) and must not resolve to loopback, link-local
// (including the cloud metadata service) or private network ranges.
package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"
)

// dnsTimeout bounds host resolution during intake.
const dnsTimeout = 500 * time.Millisecond

var (
	// ErrBlocked is returned when a URL targets a blocked IP range.
	ErrBlocked = errors.New("url: host is in a blocked IP range")

	// ErrScheme is returned for anything other than http and https.
	ErrScheme = errors.New("url: scheme must be http or https")

	// ErrDNSTimeout is returned when resolution exceeds dnsTimeout.
	ErrDNSTimeout = errors.New("url: DNS resolution timeout")

	// ErrDNSFailed is returned when the host does not resolve.
	ErrDNSFailed = errors.New("url: DNS resolution failed")
)

// blockedCIDRs lists every range a photo host may not resolve into.
var blockedCIDRs = []string{
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
}

var (
	blockedNets []*net.IPNet
	initOnce    sync.Once
	initErr     error
)

func initBlockedNets() {
	initOnce.Do(func() {
		blockedNets = make([]*net.IPNet, 0, len(blockedCIDRs))
		for _, cidr := range blockedCIDRs {
			_, ipNet, err := net.ParseCIDR(cidr)
			if err != nil {
				initErr = fmt.Errorf("url: failed to parse CIDR %q: %w", cidr, err)
				return
			}
			blockedNets = append(blockedNets, ipNet)
		}
	})
}

func isBlockedIP(ip net.IP) bool {
	if ip.IsUnspecified() {
		return true
	}
	for _, ipNet := range blockedNets {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// Resolver abstracts DNS resolution for testability.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// URLChecker validates photo URLs at report intake.
type URLChecker struct {
	resolver Resolver
	timeout  time.Duration
}

// NewURLChecker returns a checker using resolver, or net.DefaultResolver
// when resolver is nil.
func NewURLChecker(resolver Resolver) (*URLChecker, error) {
	initBlockedNets()
	if initErr != nil {
		return nil, initErr
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &URLChecker{resolver: resolver, timeout: dnsTimeout}, nil
}

// Check returns nil if rawURL is an http(s) URL whose host resolves only to
// public addresses. Every resolved address is checked, not just the first.
func (c *URLChecker) Check(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrScheme, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: URL has no host", ErrBlocked)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("%w: %s", ErrBlocked, ip)
		}
		return nil
	}

	dnsCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ips, err := c.resolver.LookupIPAddr(dnsCtx, host)
	if err != nil {
		if dnsCtx.Err() != nil {
			return fmt.Errorf("%w: host %q", ErrDNSTimeout, host)
		}
		return fmt.Errorf("%w: host %q: %v", ErrDNSFailed, host, err)
	}
	if len(ips) == 0 {
		return fmt.Errorf("%w: host %q resolved to no addresses", ErrDNSFailed, host)
	}
	for _, addr := range ips {
		if isBlockedIP(addr.IP) {
			return fmt.Errorf("%w: %s (resolved from %s)", ErrBlocked, addr.IP, host)
		}
	}
	return nil
}
