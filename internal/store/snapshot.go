// Package store keeps calibrated markets under a name so they can be priced
// against and served after the calibration that produced them.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/internal/request"
	"github.com/rzzdr/quant-curve-engine/pkg/metrics"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

// Snapshot is a calibrated market. The bundle must not be modified once saved.
type Snapshot struct {
	Name     string
	Version  int
	Market   *market.Bundle
	Response *request.CalibrationResponse
	SavedAt  time.Time
}

// Info summarises a snapshot for listings
type Info struct {
	Name         string    `json:"name"`
	Version      int       `json:"version"`
	Curves       []string  `json:"curves"`
	ResidualNorm []float64 `json:"residual_norm,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
}

// Info returns the listing summary of the snapshot
func (s *Snapshot) Info() Info {
	info := Info{
		Name:    s.Name,
		Version: s.Version,
		Curves:  s.Market.CurveNames(),
		SavedAt: s.SavedAt,
	}
	if s.Response != nil {
		info.ResidualNorm = s.Response.ResidualNorm
	}
	return info
}

// SnapshotStore stores calibrated markets by name
type SnapshotStore interface {
	Save(name string, bundle *market.Bundle, resp *request.CalibrationResponse) (*Snapshot, error)
	Get(name string) (*Snapshot, error)
	GetVersion(name string, version int) (*Snapshot, error)
	History(name string) ([]Info, error)
	List() []Info
	Delete(name string) error
}

// InMemorySnapshotStore implements SnapshotStore in memory. Saving under an
// existing name bumps the version and keeps the previous snapshot in history.
type InMemorySnapshotStore struct {
	current map[string]*Snapshot
	history *history
	mu      sync.RWMutex
	log     *logger.Logger
}

// NewInMemorySnapshotStore creates a store keeping up to depth superseded
// versions per name. A non-positive depth keeps DefaultHistoryDepth.
func NewInMemorySnapshotStore(depth int) *InMemorySnapshotStore {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	return &InMemorySnapshotStore{
		current: make(map[string]*Snapshot),
		history: newHistory(depth),
		log:     logger.GetLogger("store.snapshot"),
	}
}

// Save stores the bundle under name and returns the new snapshot
func (s *InMemorySnapshotStore) Save(name string, bundle *market.Bundle, resp *request.CalibrationResponse) (*Snapshot, error) {
	if name == "" {
		return nil, errors.InvalidArgument("snapshot name cannot be empty")
	}
	if bundle == nil {
		return nil, errors.InvalidArgument("cannot save nil market")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		Name:     name,
		Version:  1,
		Market:   bundle,
		Response: resp,
		SavedAt:  time.Now().UTC(),
	}
	if prev, ok := s.current[name]; ok {
		snap.Version = prev.Version + 1
		s.history.push(prev)
	}
	s.current[name] = snap
	metrics.SetStoredSnapshots(len(s.current))

	s.log.Infow("Snapshot saved", "name", name, "version", snap.Version, "curves", len(bundle.CurveNames()))
	return snap, nil
}

// Get returns the latest snapshot saved under name
func (s *InMemorySnapshotStore) Get(name string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.current[name]
	if !exists {
		return nil, errors.NotFound("snapshot not found: " + name)
	}
	return snap, nil
}

// GetVersion returns a specific version, current or retained in history
func (s *InMemorySnapshotStore) GetVersion(name string, version int) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.current[name]
	if !exists {
		return nil, errors.NotFound("snapshot not found: " + name)
	}
	if snap.Version == version {
		return snap, nil
	}
	if old := s.history.find(name, version); old != nil {
		return old, nil
	}
	return nil, errors.NotFound(fmt.Sprintf("snapshot %s has no version %d", name, version))
}

// History lists the retained versions of name, newest first
func (s *InMemorySnapshotStore) History(name string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.current[name]
	if !exists {
		return nil, errors.NotFound("snapshot not found: " + name)
	}
	out := []Info{snap.Info()}
	for _, old := range s.history.versions(name) {
		out = append(out, old.Info())
	}
	return out, nil
}

// List returns the latest version of every snapshot, sorted by name
func (s *InMemorySnapshotStore) List() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Info, 0, len(s.current))
	for _, snap := range s.current {
		out = append(out, snap.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Delete removes a snapshot and its history
func (s *InMemorySnapshotStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.current[name]; !exists {
		return errors.NotFound("snapshot not found: " + name)
	}
	delete(s.current, name)
	s.history.drop(name)
	metrics.SetStoredSnapshots(len(s.current))

	s.log.Infow("Snapshot deleted", "name", name)
	return nil
}

var _ SnapshotStore = (*InMemorySnapshotStore)(nil)
