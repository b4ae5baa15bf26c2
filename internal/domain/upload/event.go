package upload

import (
	"fmt"
	"strings"
	"time"

	snapper_errors "guest-snapper/pkg/errors"
)

type ProgressKind string

const (
	ProgressFile    ProgressKind = "file_progress"
	ProgressDone    ProgressKind = "file_complete"
	ProgressOverall ProgressKind = "overall_progress"
)

// ProgressEvent is what uploaders report and event viewers receive while a batch runs.
type ProgressEvent struct {
	Kind      ProgressKind `json:"kind"`
	EventID   string       `json:"event_id"`
	BatchID   string       `json:"batch_id,omitempty"`
	ItemID    string       `json:"item_id,omitempty"`
	Progress  *Progress    `json:"progress,omitempty"`
	Status    ItemStatus   `json:"status,omitempty"`
	Error     string       `json:"error,omitempty"`
	Completed int          `json:"completed,omitempty"`
	Total     int          `json:"total,omitempty"`
	At        time.Time    `json:"at"`
}

// Terminal reports whether the event closes an item or the whole batch.
func (e ProgressEvent) Terminal() bool {
	switch e.Kind {
	case ProgressDone:
		return true
	case ProgressOverall:
		return e.Total > 0 && e.Completed >= e.Total
	}
	return false
}

func (e ProgressEvent) Validate() error {
	if strings.TrimSpace(e.EventID) == "" {
		return fmt.Errorf("%w: event_id is required", snapper_errors.ErrInvalidInput)
	}
	switch e.Kind {
	case ProgressFile:
		if e.ItemID == "" || e.Progress == nil {
			return fmt.Errorf("%w: file progress needs item_id and progress", snapper_errors.ErrInvalidInput)
		}
	case ProgressDone:
		if e.ItemID == "" || (e.Status != ItemSucceeded && e.Status != ItemFailed) {
			return fmt.Errorf("%w: file completion needs item_id and a final status", snapper_errors.ErrInvalidInput)
		}
	case ProgressOverall:
		if e.Total < 0 || e.Completed < 0 || e.Completed > e.Total {
			return fmt.Errorf("%w: overall progress out of range", snapper_errors.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown progress kind %q", snapper_errors.ErrInvalidInput, e.Kind)
	}
	return nil
}
