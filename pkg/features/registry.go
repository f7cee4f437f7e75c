package features

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Dreta/Beacon/internal/log"
)

type entry struct {
	feature Feature
	desc    Descriptor
	seq     uint64
}

// Status is a catalog entry with its runtime state.
type Status struct {
	Descriptor
	Enabled     bool   `json:"enabled"`
	Available   bool   `json:"available"`
	Unavailable string `json:"unavailable,omitempty"`
}

// Registry holds the enabled features and dispatches frames to them.
type Registry struct {
	deps    Deps
	catalog []Descriptor
	logger  *slog.Logger

	mu          sync.RWMutex
	enabled     []entry
	seq         uint64
	unavailable map[Kind]error
}

// NewRegistry creates a registry over the default catalog.
func NewRegistry(deps Deps) *Registry {
	return NewRegistryWithCatalog(deps, Catalog())
}

// NewRegistryWithCatalog creates a registry over a custom catalog.
func NewRegistryWithCatalog(deps Deps, catalog []Descriptor) *Registry {
	return &Registry{
		deps:        deps,
		catalog:     catalog,
		logger:      log.Component("features"),
		unavailable: make(map[Kind]error),
	}
}

func (r *Registry) lookup(kind Kind) (Descriptor, bool) {
	for _, d := range r.catalog {
		if d.Kind == kind {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Enable turns a feature on, disabling everything it conflicts with.
// Enabling an enabled feature is a no-op. The feature is constructed without
// holding the registry lock.
func (r *Registry) Enable(kind Kind) error {
	desc, ok := r.lookup(kind)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	r.mu.RLock()
	enabled := r.indexLocked(kind) >= 0
	cause, bad := r.unavailable[kind]
	r.mu.RUnlock()
	if enabled {
		return nil
	}
	if bad {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, kind, cause)
	}

	f, err := desc.New(r.deps)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.unavailable[kind] = err
		r.logger.Warn("feature unavailable", "kind", kind, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, kind, err)
	}
	if r.indexLocked(kind) >= 0 {
		// A concurrent Enable won.
		f.OnRemove(r.deps.State)
		return nil
	}

	for _, k := range resolveConflicts(r.enabledKindsLocked(), kind, r.catalog) {
		r.removeLocked(k)
	}

	if r.deps.State != nil && len(desc.Fields) > 0 {
		r.deps.State.Claim(f.ID(), desc.Fields...)
	}
	r.seq++
	r.enabled = append(r.enabled, entry{feature: f, desc: desc, seq: r.seq})
	r.logger.Info("feature enabled", "kind", kind, "id", f.ID())
	return nil
}

// Disable turns a feature off. Disabling a disabled feature is a no-op.
func (r *Registry) Disable(kind Kind) error {
	if _, ok := r.lookup(kind); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(kind)
	return nil
}

// Toggle flips a feature and returns whether it is now enabled.
func (r *Registry) Toggle(kind Kind) (bool, error) {
	r.mu.Lock()
	if r.indexLocked(kind) >= 0 {
		r.removeLocked(kind)
		r.mu.Unlock()
		return false, nil
	}
	r.mu.Unlock()

	if err := r.Enable(kind); err != nil {
		return false, err
	}
	return true, nil
}

// IsEnabled reports whether kind is enabled.
func (r *Registry) IsEnabled(kind Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexLocked(kind) >= 0
}

// Enabled returns the enabled kinds in dispatch order.
func (r *Registry) Enabled() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ordered := r.orderedLocked()
	out := make([]Kind, len(ordered))
	for i, e := range ordered {
		out[i] = e.desc.Kind
	}
	return out
}

// Status returns every catalog entry with its runtime state.
func (r *Registry) Status() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Status, 0, len(r.catalog))
	for _, d := range r.catalog {
		s := Status{
			Descriptor: d,
			Enabled:    r.indexLocked(d.Kind) >= 0,
			Available:  true,
		}
		if cause, bad := r.unavailable[d.Kind]; bad {
			s.Available = false
			s.Unavailable = cause.Error()
		}
		out = append(out, s)
	}
	return out
}

// Dispatch runs every enabled feature's action in ascending priority,
// ties in enable order. Enable and Disable wait for a dispatch to finish.
func (r *Registry) Dispatch(in Inputs) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.orderedLocked() {
		e.feature.Action(in)
	}
}

// Close disables every feature.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.enabled) > 0 {
		r.removeLocked(r.enabled[0].desc.Kind)
	}
}

func (r *Registry) indexLocked(kind Kind) int {
	for i, e := range r.enabled {
		if e.desc.Kind == kind {
			return i
		}
	}
	return -1
}

func (r *Registry) enabledKindsLocked() []Kind {
	out := make([]Kind, len(r.enabled))
	for i, e := range r.enabled {
		out[i] = e.desc.Kind
	}
	return out
}

func (r *Registry) removeLocked(kind Kind) {
	i := r.indexLocked(kind)
	if i < 0 {
		return
	}
	e := r.enabled[i]
	r.enabled = append(r.enabled[:i], r.enabled[i+1:]...)
	e.feature.OnRemove(r.deps.State)
	r.logger.Info("feature disabled", "kind", kind, "id", e.feature.ID())
}

func (r *Registry) orderedLocked() []entry {
	out := make([]entry, len(r.enabled))
	copy(out, r.enabled)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].desc.Priority != out[j].desc.Priority {
			return out[i].desc.Priority < out[j].desc.Priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// resolveConflicts returns the enabled kinds that must be disabled before
// requested is enabled. A conflict declared by either side counts.
func resolveConflicts(enabled []Kind, requested Kind, catalog []Descriptor) []Kind {
	find := func(k Kind) Descriptor {
		for _, d := range catalog {
			if d.Kind == k {
				return d
			}
		}
		return Descriptor{Kind: k}
	}

	req := find(requested)
	var out []Kind
	for _, k := range enabled {
		if k == requested {
			continue
		}
		if req.ConflictsWith(k) || find(k).ConflictsWith(requested) {
			out = append(out, k)
		}
	}
	return out
}
