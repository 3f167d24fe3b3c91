package bridge

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Metadata is the bridge-specific state stashed under a tracking id,
// per spec.md §3's "bridge metadata".
type Metadata struct {
	MessageBytes      []byte
	Nonce             *uint64
	SourceDomain      *uint32
	DestinationDomain *uint32
	DestinationChain  int64
	AmountRaw         string
	Recipient         common.Address
	CreatedAtMs       int64
	ProtocolName      string
}

// TrackingComponents is the parsed form of a tracking id.
type TrackingComponents struct {
	Protocol    string
	SourceChain int64
	DestChain   int64 // 0 if unknown (legacy form without stored metadata)
	Identifier  string
	Legacy      bool
}

// TrackingRegistry maps tracking ids to bridge metadata and a live
// Transfer state machine. One mutex protects both maps, per spec.md
// §5's "metadata registry uses one mutex".
type TrackingRegistry struct {
	mu        sync.Mutex
	metadata  map[string]Metadata
	transfers map[string]*Transfer
}

// NewTrackingRegistry creates an empty registry.
func NewTrackingRegistry() *TrackingRegistry {
	return &TrackingRegistry{
		metadata:  make(map[string]Metadata),
		transfers: make(map[string]*Transfer),
	}
}

// Create builds the canonical 4-segment tracking id
// bridge_<protocol>_<src>_<dst>_<identifier> per spec.md §3, registers a
// fresh Transfer for it, and returns the id.
func (r *TrackingRegistry) Create(protocol string, srcChain, destChain int64, identifier string) string {
	id := fmt.Sprintf("bridge_%s_%d_%d_%s", strings.ToLower(protocol), srcChain, destChain, strings.ToLower(identifier))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfers[id] = NewTransfer(id)
	return id
}

// Parse splits a tracking id into its components. Both the canonical
// 4-segment form and the legacy 3-segment form
// bridge_<protocol>_<src>_<identifier> are accepted, per spec.md §3/§8.
// The legacy parser disambiguates an identifier that is itself numeric
// by requiring it to either start with "0x" or be the sole remaining
// segment (spec.md §9).
func (r *TrackingRegistry) Parse(id string) (*TrackingComponents, bool) {
	if !strings.HasPrefix(id, "bridge_") {
		return nil, false
	}
	rest := strings.TrimPrefix(id, "bridge_")
	parts := strings.SplitN(rest, "_", 3)
	if len(parts) < 3 {
		return nil, false
	}

	protocol := parts[0]
	srcChain, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, false
	}
	remainder := parts[2]

	// Try the canonical 4-segment form: remainder starts with a bare
	// integer destination chain id followed by "_" and an identifier.
	if idx := strings.IndexByte(remainder, '_'); idx >= 0 {
		maybeDest := remainder[:idx]
		maybeID := remainder[idx+1:]
		if dest, err := strconv.ParseInt(maybeDest, 10, 64); err == nil {
			if strings.HasPrefix(maybeID, "0x") || !strings.Contains(maybeID, "_") {
				return &TrackingComponents{
					Protocol:    protocol,
					SourceChain: srcChain,
					DestChain:   dest,
					Identifier:  strings.ToLower(maybeID),
				}, true
			}
		}
	}

	// Legacy 3-segment form: remainder is the identifier in its
	// entirety; destination chain comes from stored metadata, or stays 0
	// when none is stored.
	var dest int64
	if meta, ok := r.GetMetadata(id); ok {
		dest = meta.DestinationChain
	}
	return &TrackingComponents{
		Protocol:    protocol,
		SourceChain: srcChain,
		DestChain:   dest,
		Identifier:  strings.ToLower(remainder),
		Legacy:      true,
	}, true
}

// StoreMetadata attaches bridge metadata to an existing tracking id.
func (r *TrackingRegistry) StoreMetadata(id string, meta Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata[id] = meta
}

// GetMetadata retrieves previously stored metadata.
func (r *TrackingRegistry) GetMetadata(id string) (Metadata, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.metadata[id]
	return m, ok
}

// Transfer returns the live state machine for id, if tracked.
func (r *TrackingRegistry) Transfer(id string) (*Transfer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transfers[id]
	return t, ok
}

// Advance moves id's state machine forward under the registry lock,
// linearising transitions per tracking id (spec.md §5).
func (r *TrackingRegistry) Advance(id string, next Status, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transfers[id]
	if !ok {
		return fmt.Errorf("no transfer tracked for %s", id)
	}
	return t.Advance(next, message)
}
