package main

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"

	"github.com/jo-hoe/imgdrop/internal/upload"
)

// progressView renders one progress bar per selected file.
type progressView struct {
	writer   progress.Writer
	trackers []*progress.Tracker
	done     chan struct{}
}

func newProgressView(out io.Writer, files []upload.File) *progressView {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetStyle(progress.StyleDefault)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.Style().Visibility.ETA = false
	pw.Style().Visibility.Value = false

	view := &progressView{writer: pw, done: make(chan struct{})}
	for _, f := range files {
		tracker := &progress.Tracker{Message: f.Name, Total: 100, Units: progress.UnitsDefault}
		view.trackers = append(view.trackers, tracker)
		pw.AppendTracker(tracker)
	}
	go pw.Render()
	return view
}

// follow applies the queue state after every change until stop is called.
func (v *progressView) follow(changes <-chan struct{}, items func() []upload.PendingItem) {
	for {
		select {
		case <-v.done:
			return
		case <-changes:
			v.apply(items())
		}
	}
}

func (v *progressView) apply(items []upload.PendingItem) {
	for i, item := range items {
		if i >= len(v.trackers) {
			return
		}
		tracker := v.trackers[i]
		if tracker.IsDone() {
			continue
		}
		switch {
		case item.Failed:
			tracker.MarkAsErrored()
		case item.ResultURL != "":
			tracker.SetValue(100)
			tracker.MarkAsDone()
		default:
			tracker.SetValue(int64(item.Progress))
		}
	}
}

func (v *progressView) stop(final []upload.PendingItem) {
	close(v.done)
	v.apply(final)
	// let the renderer draw the final state before it stops
	time.Sleep(150 * time.Millisecond)
	v.writer.Stop()
	for v.writer.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}
