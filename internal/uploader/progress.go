package uploader

import (
	"sync"

	"guest-snapper/internal/domain/upload"
)

// progressTracker aggregates per-part byte counts for one file.
//
// Each part contributes max(previous, min(loaded, partLength)), so a retried part
// that starts again from zero never moves the total backwards, and the sum never
// exceeds the file size. The total is recomputed by summation on every update and
// emitted while the lock is held, which keeps observer calls serialized.
type progressTracker struct {
	mu      sync.Mutex
	total   int64
	lengths map[int]int64
	sent    map[int]int64
	last    int64
	emit    func(upload.Progress)
}

func newProgressTracker(total int64, parts []upload.PartRange, emit func(upload.Progress)) *progressTracker {
	lengths := make(map[int]int64, len(parts))
	for _, p := range parts {
		lengths[p.Number] = p.Length()
	}
	return &progressTracker{
		total:   total,
		lengths: lengths,
		sent:    make(map[int]int64, len(parts)),
		last:    -1,
		emit:    emit,
	}
}

// start emits the zero progress event seen before any bytes move.
func (t *progressTracker) start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.publish()
}

func (t *progressTracker) update(partNumber int, loaded int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	length, ok := t.lengths[partNumber]
	if !ok {
		return
	}
	if loaded > length {
		loaded = length
	}
	if loaded <= t.sent[partNumber] {
		return
	}
	t.sent[partNumber] = loaded
	t.publish()
}

func (t *progressTracker) complete(partNumber int) {
	t.update(partNumber, t.lengths[partNumber])
}

// finish reports the file as fully stored; a zero-byte file only reaches 100% here.
func (t *progressTracker) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emit(upload.Done(t.total))
}

func (t *progressTracker) uploaded() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sum()
}

func (t *progressTracker) sum() int64 {
	var n int64
	for _, v := range t.sent {
		n += v
	}
	return n
}

func (t *progressTracker) publish() {
	uploaded := t.sum()
	if uploaded == t.last {
		return
	}
	t.last = uploaded
	t.emit(upload.NewProgress(uploaded, t.total))
}
