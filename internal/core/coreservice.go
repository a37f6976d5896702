package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jo-hoe/imgdrop/internal/common"
	"github.com/jo-hoe/imgdrop/internal/database"
	"github.com/jo-hoe/imgdrop/internal/gallery"
	"github.com/jo-hoe/imgdrop/internal/imageprocessing"
	"github.com/jo-hoe/imgdrop/internal/upload"
)

const (
	msgSaveFailed      = "Failed to save image to local storage"
	msgClipboardFailed = "Failed to copy URL to clipboard"
	msgClipboardCopied = "URL copied to clipboard!"
)

// CoreService wires selection, upload, gallery and error reporting into one
// session.
type CoreService struct {
	config       *ServiceConfig
	database     database.KeyValueStore
	gallery      *gallery.Store
	queue        *upload.Queue
	orchestrator *upload.Orchestrator
	errors       *ErrorSurface
	clipboard    common.Clipboard

	subMu       sync.Mutex
	subscribers map[int]chan struct{}
	nextSubID   int
}

type options struct {
	database  database.KeyValueStore
	uploader  upload.Uploader
	previewer upload.Previewer
	clipboard common.Clipboard
}

type Option func(*options)

// WithDatabase uses store instead of the one described by the config.
// The service closes it on Close.
func WithDatabase(store database.KeyValueStore) Option {
	return func(o *options) {
		o.database = store
	}
}

func WithUploader(uploader upload.Uploader) Option {
	return func(o *options) {
		o.uploader = uploader
	}
}

func WithPreviewer(previewer upload.Previewer) Option {
	return func(o *options) {
		o.previewer = previewer
	}
}

func WithClipboard(clipboard common.Clipboard) Option {
	return func(o *options) {
		o.clipboard = clipboard
	}
}

func NewCoreService(ctx context.Context, config *ServiceConfig, opts ...Option) (*CoreService, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	store := o.database
	if store == nil {
		var err error
		store, err = database.NewDatabase(ctx, config.Database.Type, config.Database.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		slog.Info("database initialized successfully", "type", config.Database.Type)
	}
	if o.uploader == nil {
		o.uploader = upload.NewClient(config.Endpoint, upload.WithReferenceField(config.ResponseField))
	}
	if o.previewer == nil {
		o.previewer = imageprocessing.NewPreviewGenerator(config.PreviewMaxWidth)
	}
	if o.clipboard == nil {
		o.clipboard = common.SystemClipboard{}
	}

	service := &CoreService{
		config:      config,
		database:    store,
		gallery:     gallery.NewStore(store, config.StorageKey),
		clipboard:   o.clipboard,
		subscribers: map[int]chan struct{}{},
	}
	service.errors = NewErrorSurface(service.notify)
	service.queue = upload.NewQueue(o.previewer, upload.WithChangeListener(service.notify))
	service.orchestrator = upload.NewOrchestrator(service.queue, o.uploader, service,
		upload.WithErrorReporter(service.errors),
		upload.WithMaxConcurrent(config.MaxConcurrentUploads),
		upload.WithUploadingListener(func(bool) { service.notify() }),
	)

	if err := service.gallery.Load(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load gallery: %w", err)
	}
	slog.Debug("gallery loaded", "key", config.StorageKey, "count", service.gallery.Len())
	return service, nil
}

// SelectFiles queues files for upload and clears the current error. It
// returns the index of the first added file.
func (service *CoreService) SelectFiles(files []upload.File) int {
	service.errors.ClearError()
	first := service.queue.Add(files)
	slog.Info("files selected", "count", len(files), "first_index", first)
	return first
}

// Upload uploads every pending file and waits until all of them settled.
func (service *CoreService) Upload(ctx context.Context) (upload.Summary, error) {
	return service.orchestrator.UploadAll(ctx)
}

// Save records a successful upload in the gallery. A failed write is shown
// to the user while the entry stays in the in-memory gallery.
func (service *CoreService) Save(ctx context.Context, preview, url string) error {
	defer service.notify()
	if err := service.gallery.Append(ctx, preview, url); err != nil {
		if errors.Is(err, gallery.ErrPersistenceWrite) {
			service.errors.ReportError(msgSaveFailed)
		}
		return err
	}
	return nil
}

func (service *CoreService) ReportError(message string) {
	service.errors.ReportError(message)
}

func (service *CoreService) ClearError() {
	service.errors.ClearError()
}

// ErrorMessage is the current user-visible error, "" when there is none.
func (service *CoreService) ErrorMessage() string {
	return service.errors.Message()
}

func (service *CoreService) Uploading() bool {
	return service.orchestrator.Uploading()
}

// ClearPending drops all selected files and the current error message. It is
// refused while uploads run.
func (service *CoreService) ClearPending() error {
	if service.orchestrator.Uploading() {
		return upload.ErrUploadInProgress
	}
	service.queue.Clear()
	service.errors.ClearError()
	return nil
}

func (service *CoreService) Pending() []upload.PendingItem {
	return service.queue.Items()
}

func (service *CoreService) PendingCount() int {
	return service.queue.PendingCount()
}

// WaitForPreviews blocks until every started preview decode has finished.
func (service *CoreService) WaitForPreviews() {
	service.queue.WaitPreviews()
}

func (service *CoreService) AwaitPreview(ctx context.Context, index int) (string, error) {
	return service.queue.AwaitPreview(ctx, index)
}

func (service *CoreService) Gallery() []gallery.SavedImage {
	return service.gallery.Images()
}

// RemoveFromGallery removes the image at index. Only an invalid index is an
// error; a failed write is logged, the removal stands and saved is false.
func (service *CoreService) RemoveFromGallery(ctx context.Context, index int) (saved bool, err error) {
	err = service.gallery.RemoveAt(ctx, index)
	if errors.Is(err, gallery.ErrIndexOutOfRange) {
		return false, err
	}
	saved = err == nil
	if !saved {
		slog.Warn("gallery removal not persisted", "index", index, "error", err)
	}
	service.notify()
	return saved, nil
}

func (service *CoreService) ClearGallery(ctx context.Context) error {
	defer service.notify()
	if err := service.gallery.ClearAll(ctx); err != nil {
		slog.Error("failed to clear gallery", "error", err)
		return err
	}
	return nil
}

// CopyToClipboard writes text to the system clipboard. A failure is shown
// to the user and returned.
func (service *CoreService) CopyToClipboard(text string) error {
	if err := service.clipboard.WriteAll(text); err != nil {
		slog.Error("failed to copy to clipboard", "error", err)
		service.errors.ReportError(msgClipboardFailed)
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	slog.Info(msgClipboardCopied, "text", text)
	return nil
}

// CopyGalleryURL copies the url of the gallery image at index.
func (service *CoreService) CopyGalleryURL(index int) (string, error) {
	images := service.gallery.Images()
	if index < 0 || index >= len(images) {
		return "", fmt.Errorf("%w: %d (size %d)", gallery.ErrIndexOutOfRange, index, len(images))
	}
	url := images[index].URL
	return url, service.CopyToClipboard(url)
}

func (service *CoreService) Close() error {
	if err := service.database.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
