package upload

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ResultSink receives every successful upload exactly once.
type ResultSink interface {
	Save(ctx context.Context, preview, url string) error
}

// ErrorReporter is the user-visible status slot.
type ErrorReporter interface {
	ReportError(message string)
	ClearError()
}

type Summary struct {
	Succeeded int
	Failed    int
}

// Orchestrator uploads all pending items of a queue concurrently and waits
// for every attempt to settle before it reports completion.
type Orchestrator struct {
	queue             *Queue
	uploader          Uploader
	sink              ResultSink
	reporter          ErrorReporter
	maxConcurrent     int
	onUploadingChange func(uploading bool)
	uploading         atomic.Bool
}

type OrchestratorOption func(*Orchestrator)

func WithErrorReporter(reporter ErrorReporter) OrchestratorOption {
	return func(o *Orchestrator) {
		o.reporter = reporter
	}
}

// WithMaxConcurrent caps simultaneous uploads; zero or less means no cap.
func WithMaxConcurrent(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.maxConcurrent = n
	}
}

// WithUploadingListener is called when the uploading flag flips.
func WithUploadingListener(fn func(uploading bool)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.onUploadingChange = fn
	}
}

func NewOrchestrator(queue *Queue, uploader Uploader, sink ResultSink, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		queue:    queue,
		uploader: uploader,
		sink:     sink,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Uploading() bool {
	return o.uploading.Load()
}

// UploadAll uploads every item that has no result yet. It returns once all
// attempts succeeded or failed; a failing item never stops its siblings.
// Without pending items it does nothing.
func (o *Orchestrator) UploadAll(ctx context.Context) (Summary, error) {
	if !o.uploading.CompareAndSwap(false, true) {
		return Summary{}, ErrUploadInProgress
	}
	slots := o.queue.pendingSlots()
	if len(slots) == 0 {
		o.uploading.Store(false)
		return Summary{}, nil
	}

	o.setUploading(true)
	defer o.setUploading(false)
	if o.reporter != nil {
		o.reporter.ClearError()
	}
	slog.Info("starting uploads", "count", len(slots))

	var succeeded, failed atomic.Int64
	var g errgroup.Group
	if o.maxConcurrent > 0 {
		g.SetLimit(o.maxConcurrent)
	}
	for _, s := range slots {
		s := s
		g.Go(func() error {
			if o.uploadOne(ctx, s) {
				succeeded.Add(1)
			} else {
				failed.Add(1)
			}
			// failures are recorded per item, never returned, so Wait sees all of them settle
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{Succeeded: int(succeeded.Load()), Failed: int(failed.Load())}
	slog.Info("uploads settled", "succeeded", summary.Succeeded, "failed", summary.Failed)
	return summary, nil
}

func (o *Orchestrator) uploadOne(ctx context.Context, s slot) bool {
	file := s.entry.File
	url, err := o.uploader.Upload(ctx, file, func(percent int) {
		o.queue.setProgress(s, percent)
	})
	if err != nil {
		slog.Error("upload failed", "error", err, "filename", file.Name, "index", s.index)
		o.queue.markFailed(s)
		if o.reporter != nil {
			o.reporter.ReportError(fmt.Sprintf("Failed to upload %s: %v", file.Name, err))
		}
		return false
	}

	o.queue.markSucceeded(s, url)
	slog.Info("upload succeeded", "filename", file.Name, "index", s.index, "url", url)

	preview := o.queue.awaitPreview(s)
	// the upload already happened, so record it even if ctx was cancelled meanwhile
	if err := o.sink.Save(context.WithoutCancel(ctx), preview, url); err != nil {
		slog.Error("failed to record upload", "error", err, "filename", file.Name, "url", url)
	}
	return true
}

func (o *Orchestrator) setUploading(uploading bool) {
	o.uploading.Store(uploading)
	if o.onUploadingChange != nil {
		o.onUploadingChange(uploading)
	}
}
