package uploader

import "guest-snapper/internal/domain/upload"

// Observer receives progress for one file. Calls to each method are serialized.
type Observer interface {
	OnProgress(p upload.Progress)
	OnPartDone(partNumber int)
}

// StateObserver is optionally implemented by an Observer to follow multipart state transitions.
type StateObserver interface {
	OnStateChange(state upload.State)
}

// BatchObserver receives per-file and overall events of a batch.
// OnFileComplete is called exactly once per item, followed by OnOverallProgress;
// those two are never called concurrently.
type BatchObserver interface {
	OnFileProgress(itemID string, p upload.Progress)
	OnFileComplete(result ItemResult)
	OnOverallProgress(completed, total int)
}

// Hooks adapts plain functions to Observer, StateObserver and BatchObserver.
// Nil fields are skipped.
type Hooks struct {
	Progress        func(p upload.Progress)
	PartDone        func(partNumber int)
	StateChange     func(state upload.State)
	FileProgress    func(itemID string, p upload.Progress)
	FileComplete    func(result ItemResult)
	OverallProgress func(completed, total int)
}

func (h Hooks) OnProgress(p upload.Progress) {
	if h.Progress != nil {
		h.Progress(p)
	}
}

func (h Hooks) OnPartDone(partNumber int) {
	if h.PartDone != nil {
		h.PartDone(partNumber)
	}
}

func (h Hooks) OnStateChange(state upload.State) {
	if h.StateChange != nil {
		h.StateChange(state)
	}
}

func (h Hooks) OnFileProgress(itemID string, p upload.Progress) {
	if h.FileProgress != nil {
		h.FileProgress(itemID, p)
	}
}

func (h Hooks) OnFileComplete(result ItemResult) {
	if h.FileComplete != nil {
		h.FileComplete(result)
	}
}

func (h Hooks) OnOverallProgress(completed, total int) {
	if h.OverallProgress != nil {
		h.OverallProgress(completed, total)
	}
}

// itemObserver forwards one batch item's file events to the batch observer.
type itemObserver struct {
	id    string
	batch BatchObserver
}

func (o itemObserver) OnProgress(p upload.Progress) {
	o.batch.OnFileProgress(o.id, p)
}

func (o itemObserver) OnPartDone(int) {}

func orNop(obs Observer) Observer {
	if obs == nil {
		return Hooks{}
	}
	return obs
}

func stateChanged(obs Observer, session *upload.Session, state upload.State) {
	session.State = state
	if so, ok := obs.(StateObserver); ok {
		so.OnStateChange(state)
	}
}
