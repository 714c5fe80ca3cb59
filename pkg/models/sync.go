package models

// SyncDestination names a downstream consumer of node outputs.
type SyncDestination string

const (
	SyncPlatformA     SyncDestination = "platform_a"
	SyncPlatformB     SyncDestination = "platform_b"
	SyncMasterData    SyncDestination = "master_data"
	SyncSharedCache   SyncDestination = "shared_cache"
	SyncPendingChange SyncDestination = "pending_change"
)

// SyncSettings selects which destinations receive a node's output after a
// run. The unified Destinations list is the current form; the individual
// booleans are the legacy form, consulted only when the list is empty.
type SyncSettings struct {
	Destinations []SyncDestination `json:"destinations,omitempty"`

	// Legacy per-destination flags.
	PlatformA     bool `json:"platform_a,omitempty"`
	PlatformB     bool `json:"platform_b,omitempty"`
	MasterData    bool `json:"master_data,omitempty"`
	SharedCache   bool `json:"shared_cache,omitempty"`
	PendingChange bool `json:"pending_change,omitempty"`

	// CacheName names the shared cache for SyncSharedCache.
	CacheName string `json:"cache_name,omitempty"`

	// Master-data target for SyncMasterData and SyncPendingChange.
	Domain string `json:"domain,omitempty"`
	Level  string `json:"level,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Resolved returns the effective destination set, falling back to the legacy
// boolean flags when no unified list is configured.
func (s SyncSettings) Resolved() []SyncDestination {
	if len(s.Destinations) > 0 {
		return s.Destinations
	}

	var dests []SyncDestination

	if s.PlatformA {
		dests = append(dests, SyncPlatformA)
	}

	if s.PlatformB {
		dests = append(dests, SyncPlatformB)
	}

	if s.MasterData {
		dests = append(dests, SyncMasterData)
	}

	if s.SharedCache {
		dests = append(dests, SyncSharedCache)
	}

	if s.PendingChange {
		dests = append(dests, SyncPendingChange)
	}

	return dests
}
