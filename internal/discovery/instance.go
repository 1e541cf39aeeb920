package discovery

import (
	"fmt"
	"time"
)

// Instance is a Home Assistant server found on the network
type Instance struct {
	// Name is the configured location name (e.g., "Home"), or the mDNS
	// instance name when the server does not publish one
	Name string

	// Hostname is the mDNS hostname (e.g., "homeassistant.local.")
	Hostname string

	// IP is the advertised address, IPv4 preferred
	IP string

	// Port is the HTTP port (typically 8123)
	Port int

	// Version is the Home Assistant version, if advertised
	Version string

	// UUID identifies the installation across address changes
	UUID string

	// Metadata holds every TXT record.
	// Common fields: "base_url", "internal_url", "external_url", "version", "uuid"
	Metadata map[string]string

	// DiscoveredAt is when the instance was found
	DiscoveredAt time.Time
}

// String returns a human-readable description of the instance
func (i *Instance) String() string {
	return fmt.Sprintf("Home Assistant %q at %s", i.Name, i.BaseURL())
}

// BaseURL returns the URL a dashboard should use. The server's own
// internal_url or base_url wins over the address the record came from.
func (i *Instance) BaseURL() string {
	for _, key := range []string{"internal_url", "base_url"} {
		if u := i.GetMetadata(key); u != "" {
			return u
		}
	}
	return fmt.Sprintf("http://%s:%d", hostIP(i.IP), i.Port)
}

// GetMetadata retrieves a TXT value by key, or returns empty string if not found
func (i *Instance) GetMetadata(key string) string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[key]
}

// key deduplicates repeated answers for the same installation
func (i *Instance) key() string {
	if i.UUID != "" {
		return i.UUID
	}
	return fmt.Sprintf("%s:%d", i.IP, i.Port)
}
