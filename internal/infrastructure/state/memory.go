package state

import (
	"context"
	"sync"
	"time"
)

// finishedRetention is how long finished slots stay readable for progress
// polling before the janitor drops them.
const finishedRetention = time.Hour

type slotEntry struct {
	info      ProcessingInfo
	cancelled bool
}

// MemoryRegistry is the default single-node Registry.
type MemoryRegistry struct {
	mu    sync.Mutex
	slots map[string]*slotEntry

	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry creates a MemoryRegistry and starts its janitor.
func NewMemoryRegistry() *MemoryRegistry {
	r := &MemoryRegistry{
		slots:    make(map[string]*slotEntry),
		stopChan: make(chan struct{}),
	}
	go r.janitor()
	return r
}

func (r *MemoryRegistry) janitor() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.purge()
		case <-r.stopChan:
			return
		}
	}
}

func (r *MemoryRegistry) purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-finishedRetention)
	for slot, entry := range r.slots {
		if !entry.info.Running && entry.info.FinishedUtc != nil && entry.info.FinishedUtc.Before(cutoff) {
			delete(r.slots, slot)
		}
	}
}

func (r *MemoryRegistry) Begin(ctx context.Context, slot string, info ProcessingInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.slots[slot]; ok && entry.info.Running {
		return errSlotBusy
	}
	info.Running = true
	r.slots[slot] = &slotEntry{info: info}
	return nil
}

func (r *MemoryRegistry) Update(ctx context.Context, slot string, info ProcessingInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.slots[slot]
	if !ok {
		return nil
	}
	info.Running = entry.info.Running
	entry.info = info
	return nil
}

func (r *MemoryRegistry) Get(ctx context.Context, slot string) (ProcessingInfo, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.slots[slot]
	if !ok {
		return ProcessingInfo{}, false, nil
	}
	return entry.info, true, nil
}

func (r *MemoryRegistry) Finish(ctx context.Context, slot string, info ProcessingInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info.Running = false
	if info.FinishedUtc == nil {
		now := time.Now().UTC()
		info.FinishedUtc = &now
	}
	r.slots[slot] = &slotEntry{info: info}
	return nil
}

func (r *MemoryRegistry) Cancel(ctx context.Context, slot string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.slots[slot]; ok && entry.info.Running {
		entry.cancelled = true
	}
	return nil
}

func (r *MemoryRegistry) IsCancelled(ctx context.Context, slot string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.slots[slot]; ok {
		return entry.cancelled, nil
	}
	return false, nil
}

// Close stops the janitor. Safe to call multiple times.
func (r *MemoryRegistry) Close() error {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	return nil
}
