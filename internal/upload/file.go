package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jo-hoe/imgdrop/internal/imageprocessing"
)

// File is a raw blob handed over by file intake. Open may be called more
// than once; every call returns a fresh reader positioned at the start.
type File struct {
	Name      string
	MediaType string
	// Size in bytes, or -1 when unknown.
	Size int64

	open func() (io.ReadCloser, error)
}

func NewFile(name, mediaType string, size int64, open func() (io.ReadCloser, error)) File {
	return File{
		Name:      name,
		MediaType: mediaType,
		Size:      size,
		open:      open,
	}
}

func FileFromBytes(name, mediaType string, data []byte) File {
	return NewFile(name, mediaType, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

// FileFromPath describes a file on disk. The media type is taken from the
// extension and sniffed from the content when the extension is unknown.
func FileFromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}

	mediaType, err := detectMediaType(path)
	if err != nil {
		return File{}, err
	}

	return NewFile(filepath.Base(path), mediaType, info.Size(), func() (io.ReadCloser, error) {
		return os.Open(path)
	}), nil
}

func detectMediaType(path string) (string, error) {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(head[:n]))
	return mediaType, nil
}

func (f File) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("file %s has no content", f.Name)
	}
	return f.open()
}

func (f File) IsImage() bool {
	return imageprocessing.IsImageMediaType(f.MediaType)
}
