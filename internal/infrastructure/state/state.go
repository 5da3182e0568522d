// Package state tracks long-running catalog imports: one named slot per
// operation holding progress counters and a cancellation flag. Backed either
// by process memory or by Redis when several instances share the work.
package state

import (
	"context"
	"time"

	"github.com/shopsync/backend/internal/domain/shared"
)

// SlotProductImport is the slot name of the single catalog import allowed at
// a time.
const SlotProductImport = "product-import"

// ProcessingInfo holds the progress counters of a running import.
type ProcessingInfo struct {
	Running         bool       `json:"running"`
	FileName        string     `json:"file_name"`
	TotalRecords    int        `json:"total_records"`
	TotalProcessed  int        `json:"total_processed"`
	NewRecords      int        `json:"new_records"`
	ModifiedRecords int        `json:"modified_records"`
	SkippedRecords  int        `json:"skipped_records"`
	FailedRecords   int        `json:"failed_records"`
	StartedUtc      time.Time  `json:"started_utc"`
	FinishedUtc     *time.Time `json:"finished_utc,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

// ProcessedPercent returns progress in the range 0..100.
func (p ProcessingInfo) ProcessedPercent() float64 {
	if p.TotalRecords <= 0 {
		return 0
	}
	percent := float64(p.TotalProcessed) / float64(p.TotalRecords) * 100
	if percent > 100 {
		return 100
	}
	return percent
}

// Registry stores progress per slot. Begin fails with ErrImportRunning while
// the slot holds a running operation.
type Registry interface {
	Begin(ctx context.Context, slot string, info ProcessingInfo) error
	Update(ctx context.Context, slot string, info ProcessingInfo) error
	Get(ctx context.Context, slot string) (ProcessingInfo, bool, error)
	// Finish marks the slot as not running and stores the final counters.
	Finish(ctx context.Context, slot string, info ProcessingInfo) error
	// Cancel flags the running operation; the worker polls IsCancelled.
	Cancel(ctx context.Context, slot string) error
	IsCancelled(ctx context.Context, slot string) (bool, error)
	Close() error
}

// errSlotBusy reuses the shared sentinel so callers can map it to a
// conflict response.
var errSlotBusy = shared.ErrImportRunning
