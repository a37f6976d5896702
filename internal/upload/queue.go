package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Previewer turns a file's content into a preview data URL.
type Previewer interface {
	Generate(mediaType string, r io.Reader) (string, error)
}

// PendingItem is the per-file state of a selected file. Progress of 0 after
// an upload attempt doubles as the failure signal; Failed makes it explicit.
type PendingItem struct {
	File      File
	Preview   string
	Progress  int
	ResultURL string
	Failed    bool
}

type entry struct {
	PendingItem
	previewDone chan struct{}
}

// slot addresses one entry. An entry keeps its index for its whole life, so a
// slot stays valid until the queue is cleared.
type slot struct {
	index int
	entry *entry
}

// Queue is the ordered list of selected files. All per-item writes go through
// it and are keyed by index, so callbacks finishing in any order never touch
// a neighbour's state.
type Queue struct {
	mu       sync.RWMutex
	entries  []*entry
	previews Previewer
	onChange func()
	decodes  sync.WaitGroup
}

type QueueOption func(*Queue)

// WithChangeListener registers fn to be called after every state change.
func WithChangeListener(fn func()) QueueOption {
	return func(q *Queue) {
		q.onChange = fn
	}
}

func NewQueue(previews Previewer, opts ...QueueOption) *Queue {
	q := &Queue{previews: previews}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Add appends files at the next free indices with progress 0 and starts
// preview decoding for image files. It returns the index of the first file.
func (q *Queue) Add(files []File) int {
	q.mu.Lock()
	first := len(q.entries)
	var decode []slot
	for _, f := range files {
		e := &entry{
			PendingItem: PendingItem{File: f},
			previewDone: make(chan struct{}),
		}
		q.entries = append(q.entries, e)
		if f.IsImage() && q.previews != nil {
			decode = append(decode, slot{index: len(q.entries) - 1, entry: e})
		} else {
			close(e.previewDone)
		}
	}
	q.decodes.Add(len(decode))
	q.mu.Unlock()

	for _, s := range decode {
		go q.decodePreview(s)
	}
	q.notify()
	return first
}

func (q *Queue) decodePreview(s slot) {
	defer q.decodes.Done()
	defer close(s.entry.previewDone)

	file := s.entry.File
	src, err := file.Open()
	if err != nil {
		slog.Warn("failed to open file for preview", "error", err, "filename", file.Name, "index", s.index)
		return
	}
	defer func() {
		_ = src.Close()
	}()

	preview, err := q.previews.Generate(file.MediaType, src)
	if err != nil {
		slog.Warn("failed to generate preview", "error", err, "filename", file.Name, "index", s.index)
		return
	}
	if !q.update(s, func(item *PendingItem) { item.Preview = preview }) {
		slog.Debug("dropping preview for cleared item", "filename", file.Name, "index", s.index)
	}
}

// update applies fn to the slot's item unless the queue was cleared since.
func (q *Queue) update(s slot, fn func(item *PendingItem)) bool {
	q.mu.Lock()
	ok := s.index < len(q.entries) && q.entries[s.index] == s.entry
	if ok {
		fn(&s.entry.PendingItem)
	}
	q.mu.Unlock()

	if ok {
		q.notify()
	}
	return ok
}

func (q *Queue) setProgress(s slot, percent int) {
	q.update(s, func(item *PendingItem) { item.Progress = percent })
}

func (q *Queue) markSucceeded(s slot, url string) {
	q.update(s, func(item *PendingItem) {
		item.ResultURL = url
		item.Failed = false
	})
}

func (q *Queue) markFailed(s slot) {
	q.update(s, func(item *PendingItem) {
		item.Progress = 0
		item.Failed = true
	})
}

// awaitPreview blocks until the slot's preview decode finished and returns
// whatever preview it produced.
func (q *Queue) awaitPreview(s slot) string {
	<-s.entry.previewDone
	q.mu.RLock()
	defer q.mu.RUnlock()
	return s.entry.Preview
}

// AwaitPreview waits until the preview of the item at index is decoded or
// ctx is done. An item without a preview yields an empty string.
func (q *Queue) AwaitPreview(ctx context.Context, index int) (string, error) {
	q.mu.RLock()
	if index < 0 || index >= len(q.entries) {
		n := len(q.entries)
		q.mu.RUnlock()
		return "", fmt.Errorf("%w: %d (size %d)", ErrItemNotFound, index, n)
	}
	s := slot{index: index, entry: q.entries[index]}
	q.mu.RUnlock()

	select {
	case <-s.entry.previewDone:
		return q.awaitPreview(s), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// pendingSlots returns every item without a result yet and clears their
// failure flags for the new attempt.
func (q *Queue) pendingSlots() []slot {
	q.mu.Lock()
	var slots []slot
	for i, e := range q.entries {
		if e.ResultURL != "" {
			continue
		}
		e.Failed = false
		slots = append(slots, slot{index: i, entry: e})
	}
	q.mu.Unlock()

	if len(slots) > 0 {
		q.notify()
	}
	return slots
}

// Items returns a copy of all items in index order.
func (q *Queue) Items() []PendingItem {
	q.mu.RLock()
	defer q.mu.RUnlock()
	items := make([]PendingItem, len(q.entries))
	for i, e := range q.entries {
		items[i] = e.PendingItem
	}
	return items
}

func (q *Queue) Item(index int) (PendingItem, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if index < 0 || index >= len(q.entries) {
		return PendingItem{}, false
	}
	return q.entries[index].PendingItem, true
}

func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}

// PendingCount is the number of items still waiting for a successful upload.
func (q *Queue) PendingCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	n := 0
	for _, e := range q.entries {
		if e.ResultURL == "" {
			n++
		}
	}
	return n
}

// Clear drops every item. Decodes still running for dropped items finish
// without effect.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.entries = nil
	q.mu.Unlock()
	q.notify()
}

// WaitPreviews blocks until all started preview decodes have finished.
func (q *Queue) WaitPreviews() {
	q.decodes.Wait()
}

func (q *Queue) notify() {
	if q.onChange != nil {
		q.onChange()
	}
}
