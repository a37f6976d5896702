package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	FormFieldImage = "image"
	uploadsPath    = "/uploads"
)

// APIService is the upload endpoint: it stores posted images and answers
// with a public link.
type APIService struct {
	config  *BackendConfig
	storage Storage
}

func NewAPIService(config *BackendConfig, storage Storage) *APIService {
	return &APIService{
		config:  config,
		storage: storage,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.GET("/probe", func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "API Service is running")
	})
	e.POST("/upload", s.uploadHandler)
	e.GET(uploadsPath+"/:name", s.fileHandler)
}

func (s *APIService) uploadHandler(ctx echo.Context) error {
	file, err := ctx.FormFile(FormFieldImage)
	if err != nil {
		slog.Warn("uploadHandler: missing form file", "status", http.StatusBadRequest, "error", err)
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "File upload failed"})
	}

	name := uuid.New().String()[:8] + strings.ToLower(filepath.Ext(file.Filename))

	src, err := file.Open()
	if err != nil {
		slog.Error("uploadHandler: failed to open uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save file"})
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("uploadHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	contentType := file.Header.Get(echo.HeaderContentType)
	if err := s.storage.Save(ctx.Request().Context(), name, contentType, src, file.Size); err != nil {
		slog.Error("uploadHandler: failed to store file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename, "name", name)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save file"})
	}

	link := fmt.Sprintf("%s%s/%s", s.baseURL(ctx), uploadsPath, name)
	slog.Info("stored upload", "filename", file.Filename, "name", name, "size", file.Size)
	return ctx.JSON(http.StatusOK, map[string]string{"link": link})
}

func (s *APIService) fileHandler(ctx echo.Context) error {
	name := ctx.Param("name")
	rc, err := s.storage.Open(ctx.Request().Context(), name)
	if errors.Is(err, ErrObjectNotFound) || errors.Is(err, ErrInvalidName) {
		return ctx.String(http.StatusNotFound, "Not found")
	}
	if err != nil {
		slog.Error("fileHandler: failed to open stored file",
			"status", http.StatusInternalServerError, "error", err, "name", name)
		return ctx.String(http.StatusInternalServerError, "Failed to load file")
	}
	defer func() {
		_ = rc.Close()
	}()

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Stream(http.StatusOK, contentType, rc)
}

func (s *APIService) baseURL(ctx echo.Context) string {
	if s.config.PublicBaseURL != "" {
		return strings.TrimRight(s.config.PublicBaseURL, "/")
	}
	return ctx.Scheme() + "://" + ctx.Request().Host
}
