package zcl

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry holds the cluster definitions this device can host.
type Registry struct {
	mu       sync.RWMutex
	clusters map[uint16]*ClusterDef
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		clusters: make(map[uint16]*ClusterDef),
		logger:   logger,
	}
}

// Register adds a cluster definition to the registry. Re-registering an ID
// replaces the previous definition.
func (r *Registry) Register(c ClusterDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := c
	r.clusters[c.ID] = &clone
	r.logger.Debug("cluster registered", "id", fmt.Sprintf("0x%04X", c.ID), "name", c.Name)
}

// Get returns a cluster definition by ID, or nil if not found.
// The returned value is a deep copy; callers may modify it safely.
func (r *Registry) Get(id uint16) *ClusterDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := r.clusters[id]
	if c == nil {
		return nil
	}
	return c.DeepCopy()
}

// Endpoint assembles an endpoint description from registered cluster IDs.
// Unknown IDs are skipped with a warning.
func (r *Registry) Endpoint(id uint8, profileID, deviceID uint16, clusterIDs ...uint16) Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep := Endpoint{ID: id, ProfileID: profileID, DeviceID: deviceID}
	for _, cid := range clusterIDs {
		c := r.clusters[cid]
		if c == nil {
			r.logger.Warn("endpoint references unregistered cluster", "id", fmt.Sprintf("0x%04X", cid))
			continue
		}
		ep.Clusters = append(ep.Clusters, *c.DeepCopy())
	}
	return ep
}
