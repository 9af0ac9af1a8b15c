package types

// Action identifies what an invalidation message asks peers to do.
type Action string

// Actions carried by invalidation messages.
const (
	// ActionDelete asks peers to drop a single key from their local tier.
	ActionDelete Action = "delete"

	// ActionClear asks peers to clear their local tier entirely.
	ActionClear Action = "clear"
)

// InvalidationMessage is the wire payload broadcast on the invalidation
// channel. It is transient: produced on Set/Delete/Clear, consumed by every
// subscriber, never persisted. Key is present only for ActionDelete.
type InvalidationMessage struct {
	SourceID string `json:"source_id"`
	Action   Action `json:"action"`
	Key      string `json:"key,omitempty"`
}

// TierStats is the per-tier report returned by Stats. For the shared tier,
// Size counts keys in the backend database and MaxSize is zero; UsedMemory
// and ConnectedClients are filled best-effort and stay empty when the
// backend cannot report them.
type TierStats struct {
	Engine           string `json:"engine"`
	Size             int64  `json:"size"`
	MaxSize          int64  `json:"max_size,omitempty"`
	Hits             int64  `json:"hits"`
	Misses           int64  `json:"misses"`
	Evictions        int64  `json:"evictions,omitempty"`
	UsedMemory       string `json:"used_memory,omitempty"`
	ConnectedClients int64  `json:"connected_clients,omitempty"`
}

// Stats aggregates the tier reports of one orchestrator instance. A nil tier
// pointer means that tier is disabled (or was degraded away at startup).
type Stats struct {
	Local         *TierStats `json:"local,omitempty"`
	Shared        *TierStats `json:"shared,omitempty"`
	Invalidations int64      `json:"invalidations"`
	Degraded      bool       `json:"degraded"`
}
