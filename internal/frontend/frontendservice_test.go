package frontend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jo-hoe/imgdrop/internal/common"
	"github.com/jo-hoe/imgdrop/internal/core"
	"github.com/jo-hoe/imgdrop/internal/database"
	"github.com/jo-hoe/imgdrop/internal/upload"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type gatedUploader struct {
	mu      sync.Mutex
	gate    chan struct{}
	failing map[string]bool
}

func (g *gatedUploader) Upload(ctx context.Context, file upload.File, progress func(int)) (string, error) {
	g.mu.Lock()
	gate := g.gate
	fail := g.failing[file.Name]
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if fail {
		return "", &upload.HTTPError{StatusCode: 502}
	}
	progress(100)
	return "https://example/" + file.Name, nil
}

type stubPreviewer struct{}

func (stubPreviewer) Generate(_ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return "data:preview," + string(data), nil
}

type stubClipboard struct {
	mu   sync.Mutex
	text string
	err  error
}

func (c *stubClipboard) WriteAll(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

type testSession struct {
	server    *httptest.Server
	service   *FrontendService
	core      *core.CoreService
	uploader  *gatedUploader
	clipboard *stubClipboard
}

func newTestSession(t *testing.T) *testSession {
	t.Helper()
	uploader := &gatedUploader{failing: map[string]bool{}}
	clip := &stubClipboard{}
	coreService, err := core.NewCoreService(context.Background(), core.DefaultConfig(),
		core.WithDatabase(database.NewMemoryDatabase()),
		core.WithUploader(uploader),
		core.WithPreviewer(stubPreviewer{}),
		core.WithClipboard(clip),
	)
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}

	e := common.NewEchoServer()
	service := NewFrontendService(coreService)
	service.SetRoutes(e)
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		server.Close()
		service.Close()
		_ = coreService.Close()
	})
	return &testSession{server: server, service: service, core: coreService, uploader: uploader, clipboard: clip}
}

type formFile struct {
	name      string
	mediaType string
	content   string
}

func (s *testSession) postFiles(t *testing.T, files ...formFile) *http.Response {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+f.name+`"`)
		if f.mediaType != "" {
			h.Set("Content-Type", f.mediaType)
		}
		part, err := writer.CreatePart(h)
		if err != nil {
			t.Fatalf("CreatePart error: %v", err)
		}
		_, _ = part.Write([]byte(f.content))
	}
	_ = writer.Close()
	return s.do(t, http.MethodPost, "/api/files", writer.FormDataContentType(), &body)
}

func (s *testSession) do(t *testing.T, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.server.URL+path, body)
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testSession) state(t *testing.T) core.Snapshot {
	t.Helper()
	resp := s.do(t, http.MethodGet, "/api/state", "", nil)
	var snapshot core.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		t.Fatalf("failed to decode state: %v", err)
	}
	return snapshot
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, data)
	}
}

func TestSelectAndUpload(t *testing.T) {
	s := newTestSession(t)

	resp := s.postFiles(t,
		formFile{name: "a.png", mediaType: "image/png", content: "aaa"},
		formFile{name: "b.png", mediaType: "image/png", content: "bbb"},
		formFile{name: "c.txt", content: "plain text"},
	)
	expectStatus(t, resp, http.StatusCreated)
	s.core.WaitForPreviews()

	snapshot := s.state(t)
	if len(snapshot.Pending) != 3 {
		t.Fatalf("expected 3 pending items, got %+v", snapshot.Pending)
	}
	if snapshot.Pending[1].Preview != "data:preview,bbb" {
		t.Errorf("unexpected preview for b.png: %q", snapshot.Pending[1].Preview)
	}
	if snapshot.Pending[2].Preview != "" || !strings.HasPrefix(snapshot.Pending[2].MediaType, "text/plain") {
		t.Errorf("expected sniffed text file without preview, got %+v", snapshot.Pending[2])
	}

	s.uploader.failing["b.png"] = true
	expectStatus(t, s.do(t, http.MethodPost, "/api/upload", "", nil), http.StatusAccepted)
	s.service.Wait()

	snapshot = s.state(t)
	if snapshot.Uploading {
		t.Errorf("expected uploading false after settlement")
	}
	if len(snapshot.Gallery) != 2 {
		t.Fatalf("expected 2 gallery entries, got %+v", snapshot.Gallery)
	}
	if snapshot.Error != "Failed to upload b.png: upload failed with status 502" {
		t.Errorf("unexpected error %q", snapshot.Error)
	}
	if !snapshot.Pending[1].Failed || snapshot.Pending[1].Progress != 0 {
		t.Errorf("expected failed item with progress 0, got %+v", snapshot.Pending[1])
	}
}

func TestSelectFiles_Invalid(t *testing.T) {
	s := newTestSession(t)

	expectStatus(t, s.postFiles(t), http.StatusBadRequest)
	expectStatus(t, s.do(t, http.MethodPost, "/api/files", "text/plain", strings.NewReader("x")), http.StatusBadRequest)
}

func TestUpload_NothingPending(t *testing.T) {
	s := newTestSession(t)
	expectStatus(t, s.do(t, http.MethodPost, "/api/upload", "", nil), http.StatusOK)
}

func TestUpload_ConflictsWhileRunning(t *testing.T) {
	s := newTestSession(t)
	gate := make(chan struct{})
	s.uploader.gate = gate

	expectStatus(t, s.postFiles(t, formFile{name: "a.png", mediaType: "image/png", content: "a"}), http.StatusCreated)
	expectStatus(t, s.do(t, http.MethodPost, "/api/upload", "", nil), http.StatusAccepted)

	expectStatus(t, s.do(t, http.MethodPost, "/api/upload", "", nil), http.StatusConflict)

	deadline := time.Now().Add(2 * time.Second)
	for !s.core.Uploading() {
		if time.Now().After(deadline) {
			t.Fatal("upload did not start")
		}
		time.Sleep(time.Millisecond)
	}
	expectStatus(t, s.do(t, http.MethodDelete, "/api/files", "", nil), http.StatusConflict)

	close(gate)
	s.service.Wait()
	expectStatus(t, s.do(t, http.MethodDelete, "/api/files", "", nil), http.StatusNoContent)
	if len(s.state(t).Pending) != 0 {
		t.Fatal("expected pending items to be cleared")
	}
}

func TestGalleryRoutes(t *testing.T) {
	s := newTestSession(t)
	expectStatus(t, s.postFiles(t,
		formFile{name: "a.png", mediaType: "image/png", content: "a"},
		formFile{name: "b.png", mediaType: "image/png", content: "b"},
	), http.StatusCreated)
	if _, err := s.core.Upload(context.Background()); err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	var images []map[string]string
	resp := s.do(t, http.MethodGet, "/api/gallery", "", nil)
	if err := json.NewDecoder(resp.Body).Decode(&images); err != nil {
		t.Fatalf("failed to decode gallery: %v", err)
	}
	if len(images) != 2 || images[0]["url"] == "" || images[0]["preview"] == "" {
		t.Fatalf("unexpected gallery %+v", images)
	}

	expectStatus(t, s.do(t, http.MethodDelete, "/api/gallery/abc", "", nil), http.StatusBadRequest)
	expectStatus(t, s.do(t, http.MethodDelete, "/api/gallery/7", "", nil), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodDelete, "/api/gallery/0", "", nil), http.StatusNoContent)
	if got := len(s.core.Gallery()); got != 1 {
		t.Fatalf("expected 1 image after removal, got %d", got)
	}

	expectStatus(t, s.do(t, http.MethodDelete, "/api/gallery", "", nil), http.StatusNoContent)
	if got := len(s.core.Gallery()); got != 0 {
		t.Fatalf("expected empty gallery, got %d", got)
	}
}

func TestClipboardRoute(t *testing.T) {
	s := newTestSession(t)

	expectStatus(t, s.do(t, http.MethodPost, "/api/clipboard", "application/json",
		strings.NewReader(`{"text":"https://example/x.png"}`)), http.StatusOK)
	if s.clipboard.text != "https://example/x.png" {
		t.Fatalf("clipboard holds %q", s.clipboard.text)
	}

	expectStatus(t, s.do(t, http.MethodPost, "/api/clipboard", "application/json",
		strings.NewReader(`{"text":""}`)), http.StatusBadRequest)

	s.clipboard.mu.Lock()
	s.clipboard.err = errors.New("no clipboard")
	s.clipboard.mu.Unlock()
	expectStatus(t, s.do(t, http.MethodPost, "/api/clipboard", "application/json",
		strings.NewReader(`{"text":"https://example/y.png"}`)), http.StatusInternalServerError)
	if got := s.state(t).Error; got != "Failed to copy URL to clipboard" {
		t.Fatalf("unexpected error %q", got)
	}
}

func TestEventsStream(t *testing.T) {
	s := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/api/events"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	var initial core.Snapshot
	if err := wsjson.Read(ctx, conn, &initial); err != nil {
		t.Fatalf("failed to read initial snapshot: %v", err)
	}
	if len(initial.Pending) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", initial)
	}

	expectStatus(t, s.postFiles(t, formFile{name: "a.png", mediaType: "image/png", content: "a"}), http.StatusCreated)

	// changes are coalesced, so keep reading until the selection shows up
	for {
		var snapshot core.Snapshot
		if err := wsjson.Read(ctx, conn, &snapshot); err != nil {
			t.Fatalf("failed to read snapshot: %v", err)
		}
		if len(snapshot.Pending) == 1 && snapshot.Pending[0].Name == "a.png" {
			return
		}
	}
}
