package webfetch

import (
	"context"
	"net"
	"syscall"
)

// Config governs the safety envelope every fetch operates under.
type Config struct {
	AllowInsecureOverrides bool // FORGE_WEBFETCH_ALLOW_INSECURE_OVERRIDES=1
	MaxRedirects           int
	MaxDownloadBytes       int64
	MaxRobotsBytes         int64
	RobotsFailOpen         bool
	CacheTTLSeconds        int64
	MaxCacheEntries        int
}

// DefaultConfig matches the production safety envelope.
func DefaultConfig() Config {
	return Config{
		MaxRedirects:     5,
		MaxDownloadBytes: 5 << 20,
		MaxRobotsBytes:   512 << 10,
		RobotsFailOpen:   true,
		CacheTTLSeconds:  3600,
		MaxCacheEntries:  256,
	}
}

// resolver lets tests substitute a fake DNS resolver.
var resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
} = net.DefaultResolver

// validateHost resolves host and rejects it if any resolved address is
// private/loopback/link-local/reserved, unless cfg allows loopback
// overrides and the host is specifically loopback.
func validateHost(ctx context.Context, host string, cfg Config) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return validateIPs(host, []net.IP{ip}, cfg)
	}
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, newErr(ErrInvalidURL, "dns resolution failed for "+host, err)
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return validateIPs(host, ips, cfg)
}

func validateIPs(host string, ips []net.IP, cfg Config) ([]net.IP, error) {
	if len(ips) == 0 {
		return nil, newErr(ErrInvalidURL, "no addresses resolved for "+host, nil)
	}
	for _, ip := range ips {
		if isUnsafeIP(ip) {
			if cfg.AllowInsecureOverrides && ip.IsLoopback() {
				continue
			}
			return nil, newErr(ErrSSRFBlocked, "resolved address "+ip.String()+" for "+host+" is not publicly routable", nil)
		}
	}
	return ips, nil
}

// isUnsafeIP reports whether ip must never be contacted by an unauthenticated
// outbound fetch: loopback, private (RFC1918/ULA), link-local, multicast,
// unspecified, or otherwise reserved (includes IPv4-mapped IPv6 addresses by
// unwrapping to their IPv4 form first).
func isUnsafeIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	switch {
	case ip.IsLoopback():
		return true
	case ip.IsPrivate():
		return true
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return true
	case ip.IsUnspecified():
		return true
	case ip.IsMulticast():
		return true
	case isCGNAT(ip):
		return true
	default:
		return false
	}
}

// isCGNAT reports whether ip falls in the carrier-grade NAT range
// 100.64.0.0/10, which net.IP has no built-in helper for.
func isCGNAT(ip net.IP) bool {
	v4 := ip.To4()
	if v4 == nil {
		return false
	}
	return v4[0] == 100 && v4[1]&0xC0 == 64
}

// dialerFor returns a net.Dialer whose Control hook re-validates that the
// address actually dialed is one of the IPs we already approved, pinning
// the connection against DNS-rebinding between validation and dial.
func dialerFor(approved []net.IP) *net.Dialer {
	allowed := make(map[string]bool, len(approved))
	for _, ip := range approved {
		allowed[ip.String()] = true
	}
	return &net.Dialer{
		Control: func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				host = address
			}
			if !allowed[host] {
				return newErr(ErrSSRFBlocked, "dial target "+host+" does not match the pre-validated address set", nil)
			}
			return nil
		},
	}
}
