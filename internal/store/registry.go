package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/citypulse/server/internal/metrics"
	"github.com/citypulse/server/internal/services/storage"
	"github.com/citypulse/server/internal/utils"
)

const snapshotContentType = "application/json"

// Registry owns one Store per device. Stores are rehydrated from the blob
// store on first access and written back when their version moves.
type Registry struct {
	blobs  storage.StorageInterface
	prefix string
	now    func() time.Time

	mu     sync.Mutex
	stores map[string]*entry
}

type entry struct {
	store *Store
	// saved is the store version last written to the blob store.
	saved uint64
	// persistMu serialises writes of one device and guards saved.
	persistMu sync.Mutex
}

type RegistryOption func(*Registry)

func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(blobs storage.StorageInterface, prefix string, opts ...RegistryOption) *Registry {
	r := &Registry{
		blobs:  blobs,
		prefix: prefix,
		now:    time.Now,
		stores: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) key(deviceID string) string {
	return r.prefix + deviceID + ".json"
}

// Get returns the device's store, rehydrating it on first access. A missing
// snapshot yields fresh state; a corrupt one is logged and replaced.
func (r *Registry) Get(ctx context.Context, deviceID string) (*Store, error) {
	if deviceID == "" {
		return nil, utils.NewMissingDeviceIDError()
	}

	r.mu.Lock()
	e, ok := r.stores[deviceID]
	r.mu.Unlock()
	if ok {
		// A store handed to a request is not idle.
		e.store.markAccessed()
		return e.store, nil
	}

	state, err := r.load(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request may have rehydrated the same device meanwhile.
	if e, ok := r.stores[deviceID]; ok {
		return e.store, nil
	}
	st := newStore(deviceID, state, r.now)
	r.stores[deviceID] = &entry{store: st, saved: st.Version()}
	metrics.SetActiveStores(len(r.stores))
	return st, nil
}

func (r *Registry) load(ctx context.Context, deviceID string) (Snapshot, error) {
	data, err := r.blobs.Download(ctx, r.key(deviceID))
	if errors.Is(err, storage.ErrNotFound) {
		return NewSnapshot(), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load state for device %s: %w", deviceID, err)
	}

	state := NewSnapshot()
	if err := json.Unmarshal(data, &state); err != nil {
		utils.LogWarn(ctx, "Discarding unreadable state snapshot", utils.Fields{
			"device_id": deviceID,
			"error":     err.Error(),
		})
		return NewSnapshot(), nil
	}
	return state, nil
}

// Persist writes the store's snapshot if it changed since the last write.
// A store evicted while a request still held it is taken back, so the
// request's changes are not lost.
func (r *Registry) Persist(ctx context.Context, st *Store) error {
	deviceID := st.DeviceID()

	r.mu.Lock()
	e, ok := r.stores[deviceID]
	if !ok {
		e = &entry{store: st}
		r.stores[deviceID] = e
		metrics.SetActiveStores(len(r.stores))
	}
	r.mu.Unlock()

	if e.store != st {
		utils.LogWarn(ctx, "Discarding changes to a replaced device store", utils.Fields{"device_id": deviceID})
		return nil
	}
	return r.persistEntry(ctx, e)
}

func (r *Registry) persistEntry(ctx context.Context, e *entry) error {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	state, version := e.store.snapshot()
	if version == e.saved {
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := r.blobs.Upload(ctx, r.key(e.store.DeviceID()), data, snapshotContentType); err != nil {
		return err
	}
	e.saved = version
	return nil
}

// Flush persists every dirty store.
func (r *Registry) Flush(ctx context.Context) error {
	var errs []error
	for _, e := range r.entries() {
		if err := r.persistEntry(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("device %s: %w", e.store.DeviceID(), err))
		}
	}
	return errors.Join(errs...)
}

// EvictIdle persists and drops stores untouched for longer than ttl. Stores
// that fail to persist are kept. It returns the number evicted.
func (r *Registry) EvictIdle(ctx context.Context, ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)
	evicted := 0

	for _, e := range r.entries() {
		if e.store.LastAccess().After(cutoff) {
			continue
		}
		if err := r.persistEntry(ctx, e); err != nil {
			utils.LogError(ctx, "Failed to persist idle store", err, utils.Fields{"device_id": e.store.DeviceID()})
			continue
		}

		if r.dropIfIdle(e, cutoff) {
			evicted++
		}
	}

	return evicted
}

// dropIfIdle removes e when its store is still clean and idle. The store
// lock is held across the check and the removal, so a dispatch lands either
// before (and keeps the store) or on a store Persist will take back.
func (r *Registry) dropIfIdle(e *entry, cutoff time.Time) bool {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	deviceID := e.store.DeviceID()
	return e.store.withIdle(e.saved, cutoff, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		cur, ok := r.stores[deviceID]
		if !ok || cur != e {
			return false
		}
		delete(r.stores, deviceID)
		metrics.SetActiveStores(len(r.stores))
		return true
	})
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

func (r *Registry) entries() []*entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entry, 0, len(r.stores))
	for _, e := range r.stores {
		out = append(out, e)
	}
	return out
}
