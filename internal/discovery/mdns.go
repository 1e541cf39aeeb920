package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type Home Assistant advertises
	ServiceType = "_home-assistant._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the Home Assistant HTTP port
	DefaultPort = 8123
)

// ErrNotFound means no Home Assistant instance answered
var ErrNotFound = errors.New("no Home Assistant instance found")

// Scanner handles mDNS discovery of Home Assistant servers
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan collects every instance that answers before the timeout
func (s *Scanner) Scan(ctx context.Context) ([]*Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	collected := make(chan []*Instance, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		collected <- collect(entries)
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	// The resolver closes entries once the browse context ends
	select {
	case instances := <-collected:
		return instances, nil
	case <-time.After(time.Second):
		return nil, fmt.Errorf("mDNS resolver did not finish")
	}
}

// First returns the first instance to answer. ErrNotFound is returned when
// nothing answers before the timeout.
func (s *Scanner) First(ctx context.Context) (*Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Instance, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		found <- first(entries)
		cancel()
		for range entries {
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	var instance *Instance
	select {
	case instance = <-found:
	case <-ctx.Done():
		select {
		case instance = <-found:
		case <-time.After(time.Second):
		}
	}
	if instance == nil {
		return nil, fmt.Errorf("%w within %s", ErrNotFound, s.Timeout)
	}
	return instance, nil
}

// first returns the first usable entry, or nil once entries is closed
func first(entries <-chan *zeroconf.ServiceEntry) *Instance {
	for entry := range entries {
		if instance := parseServiceEntry(entry); instance != nil {
			return instance
		}
	}
	return nil
}

// collect drains entries, dropping non-matches and repeats
func collect(entries <-chan *zeroconf.ServiceEntry) []*Instance {
	instances := make([]*Instance, 0)
	seen := make(map[string]bool)
	for entry := range entries {
		instance := parseServiceEntry(entry)
		if instance == nil || seen[instance.key()] {
			continue
		}
		seen[instance.key()] = true
		instances = append(instances, instance)
	}
	return instances
}

// parseServiceEntry converts a zeroconf service entry to an Instance.
// Returns nil if the entry has no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Instance {
	if entry == nil {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}

	metadata := parseText(entry.Text)
	if ip == "" && metadata["base_url"] == "" && metadata["internal_url"] == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	name := metadata["location_name"]
	if name == "" {
		name = entry.Instance
	}

	return &Instance{
		Name:         name,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Version:      metadata["version"],
		UUID:         metadata["uuid"],
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// parseText splits "key=value" TXT records. A key without "=" maps to "".
func parseText(records []string) map[string]string {
	metadata := make(map[string]string, len(records))
	for _, txt := range records {
		key, value, _ := strings.Cut(txt, "=")
		if key == "" {
			continue
		}
		metadata[key] = value
	}
	return metadata
}

// Discover is a convenience function to scan with a custom timeout
func Discover(ctx context.Context, timeout time.Duration) ([]*Instance, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.Scan(ctx)
}

// hostIP is the literal form used in BaseURL for an address. IPv6 needs brackets.
func hostIP(ip string) string {
	if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() == nil {
		return "[" + ip + "]"
	}
	return ip
}
