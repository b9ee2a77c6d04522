package zcl

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry holds the standard ZCL cluster definitions used to describe
// generically constructed clusters.
type Registry struct {
	mu       sync.RWMutex
	clusters map[uint16]*ClusterDef
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		clusters: make(map[uint16]*ClusterDef),
		logger:   logger.With("component", "zcl"),
	}
}

// Register adds a cluster definition. A second definition with the same id
// replaces the first.
func (r *Registry) Register(c ClusterDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.clusters[c.ID]; ok {
		r.logger.Warn("cluster redefined", "id", fmt.Sprintf("0x%04X", c.ID), "old", existing.Name, "new", c.Name)
	}
	r.clusters[c.ID] = c.DeepCopy()
	r.logger.Debug("cluster registered", "id", fmt.Sprintf("0x%04X", c.ID), "name", c.Name)
}

// RegisterAll registers every definition in order.
func (r *Registry) RegisterAll(defs []ClusterDef) {
	for _, c := range defs {
		r.Register(c)
	}
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

// Name returns the registered cluster name, or the hex id if unknown.
func (r *Registry) Name(id uint16) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c := r.clusters[id]; c != nil {
		return c.Name
	}
	return fmt.Sprintf("0x%04X", id)
}

// All returns all registered cluster definitions ordered by id.
func (r *Registry) All() []ClusterDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]ClusterDef, 0, len(r.clusters))
	for _, c := range r.clusters {
		result = append(result, *c.DeepCopy())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Len returns the number of registered clusters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clusters)
}
