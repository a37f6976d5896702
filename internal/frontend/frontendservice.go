package frontend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/jo-hoe/imgdrop/internal/core"
	"github.com/jo-hoe/imgdrop/internal/gallery"
	"github.com/jo-hoe/imgdrop/internal/upload"
	"github.com/labstack/echo/v4"
)

const formFieldFiles = "files"

type clipboardRequest struct {
	Text string `json:"text" validate:"required"`
}

// FrontendService exposes a session as a JSON API for a browser UI.
type FrontendService struct {
	coreService *core.CoreService

	uploadCtx    context.Context
	cancelUpload context.CancelFunc
	uploading    atomic.Bool
	background   sync.WaitGroup
}

func NewFrontendService(coreService *core.CoreService) *FrontendService {
	ctx, cancel := context.WithCancel(context.Background())
	return &FrontendService{
		coreService:  coreService,
		uploadCtx:    ctx,
		cancelUpload: cancel,
	}
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.GET("/probe", func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "Session API is running")
	})

	e.GET("/api/state", service.stateHandler)
	e.GET("/api/events", service.eventsHandler)

	e.POST("/api/files", service.selectFilesHandler)
	e.DELETE("/api/files", service.clearFilesHandler)
	e.POST("/api/upload", service.uploadHandler)

	e.GET("/api/gallery", service.listGalleryHandler)
	e.DELETE("/api/gallery/:index", service.removeGalleryImageHandler)
	e.DELETE("/api/gallery", service.clearGalleryHandler)

	e.POST("/api/clipboard", service.clipboardHandler)
}

// Wait blocks until background uploads started by the API have settled.
func (service *FrontendService) Wait() {
	service.background.Wait()
}

// Close cancels running uploads and waits for them to settle.
func (service *FrontendService) Close() {
	service.cancelUpload()
	service.background.Wait()
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

func (service *FrontendService) stateHandler(ctx echo.Context) error {
	setNoCache(ctx)
	return ctx.JSON(http.StatusOK, service.coreService.Snapshot())
}

func (service *FrontendService) selectFilesHandler(ctx echo.Context) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		slog.Warn("selectFilesHandler: invalid multipart form", "status", http.StatusBadRequest, "error", err)
		return ctx.JSON(http.StatusBadRequest, errorBody("Failed to read selected files"))
	}
	headers := form.File[formFieldFiles]
	if len(headers) == 0 {
		return ctx.JSON(http.StatusBadRequest, errorBody("No files selected"))
	}

	files := make([]upload.File, 0, len(headers))
	for _, header := range headers {
		file, err := readFormFile(header)
		if err != nil {
			slog.Error("selectFilesHandler: failed to read selected file",
				"status", http.StatusBadRequest, "error", err, "filename", header.Filename)
			return ctx.JSON(http.StatusBadRequest, errorBody("Failed to read selected files"))
		}
		files = append(files, file)
	}

	first := service.coreService.SelectFiles(files)
	return ctx.JSON(http.StatusCreated, map[string]int{"first": first, "count": len(files)})
}

// readFormFile copies the part into memory; the multipart temp files are
// removed once the request is done, while decode and upload outlive it.
func readFormFile(header *multipart.FileHeader) (upload.File, error) {
	src, err := header.Open()
	if err != nil {
		return upload.File{}, err
	}
	defer func() {
		_ = src.Close()
	}()
	data, err := io.ReadAll(src)
	if err != nil {
		return upload.File{}, err
	}

	mediaType := header.Header.Get(echo.HeaderContentType)
	if mediaType == "" || mediaType == echo.MIMEOctetStream {
		mediaType = http.DetectContentType(data)
	}
	return upload.FileFromBytes(header.Filename, mediaType, data), nil
}

func (service *FrontendService) clearFilesHandler(ctx echo.Context) error {
	if err := service.coreService.ClearPending(); err != nil {
		if errors.Is(err, upload.ErrUploadInProgress) {
			return ctx.JSON(http.StatusConflict, errorBody("Upload in progress"))
		}
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (service *FrontendService) uploadHandler(ctx echo.Context) error {
	if service.coreService.PendingCount() == 0 {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "Nothing to upload"})
	}
	if service.coreService.Uploading() || !service.uploading.CompareAndSwap(false, true) {
		return ctx.JSON(http.StatusConflict, errorBody("Upload in progress"))
	}

	service.background.Add(1)
	go func() {
		defer service.background.Done()
		defer service.uploading.Store(false)

		summary, err := service.coreService.Upload(service.uploadCtx)
		if err != nil {
			slog.Warn("background upload not started", "error", err)
			return
		}
		slog.Info("background upload finished", "succeeded", summary.Succeeded, "failed", summary.Failed)
	}()

	return ctx.JSON(http.StatusAccepted, map[string]string{"status": "Upload started"})
}

func (service *FrontendService) listGalleryHandler(ctx echo.Context) error {
	setNoCache(ctx)
	return ctx.JSON(http.StatusOK, service.coreService.Gallery())
}

func (service *FrontendService) removeGalleryImageHandler(ctx echo.Context) error {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		slog.Warn("removeGalleryImageHandler: invalid index", "status", http.StatusBadRequest, "index", ctx.Param("index"))
		return ctx.JSON(http.StatusBadRequest, errorBody("Invalid index"))
	}

	_, err = service.coreService.RemoveFromGallery(ctx.Request().Context(), index)
	if errors.Is(err, gallery.ErrIndexOutOfRange) {
		return ctx.JSON(http.StatusNotFound, errorBody("Image not found"))
	}
	if err != nil {
		slog.Error("removeGalleryImageHandler: failed to remove image",
			"status", http.StatusInternalServerError, "index", index, "error", err)
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to remove image"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (service *FrontendService) clearGalleryHandler(ctx echo.Context) error {
	if err := service.coreService.ClearGallery(ctx.Request().Context()); err != nil {
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to clear gallery"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (service *FrontendService) clipboardHandler(ctx echo.Context) error {
	var request clipboardRequest
	if err := ctx.Bind(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}
	if err := ctx.Validate(&request); err != nil {
		return err
	}

	if err := service.coreService.CopyToClipboard(request.Text); err != nil {
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to copy URL to clipboard"))
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "URL copied to clipboard!"})
}

func setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}
