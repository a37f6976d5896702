package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

const (
	DefaultFieldName      = "image"
	DefaultReferenceField = "link"
)

// Uploader sends one file to the remote endpoint and returns the reference
// the endpoint assigned to it. progress receives whole percentages.
type Uploader interface {
	Upload(ctx context.Context, file File, progress func(percent int)) (string, error)
}

// Client posts each file as a multipart form with a single file field.
type Client struct {
	endpoint       string
	httpClient     *http.Client
	fieldName      string
	referenceField string
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithReferenceField sets the JSON response field holding the reference.
func WithReferenceField(field string) ClientOption {
	return func(c *Client) {
		if field != "" {
			c.referenceField = field
		}
	}
}

func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:       endpoint,
		httpClient:     http.DefaultClient,
		fieldName:      DefaultFieldName,
		referenceField: DefaultReferenceField,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Upload(ctx context.Context, file File, progress func(percent int)) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer func() {
		_ = src.Close()
	}()

	body, contentType, total := c.multipartBody(file, src)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		&progressReader{r: body, total: total, report: progress})
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if total >= 0 {
		req.ContentLength = total
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &HTTPError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	return c.parseReference(data)
}

// multipartBody streams the form around src. The total is -1 when the file
// size is unknown.
func (c *Client) multipartBody(file File, src io.Reader) (io.Reader, string, int64) {
	var head bytes.Buffer
	mw := multipart.NewWriter(&head)

	mediaType := file.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(c.fieldName), escapeQuotes(file.Name)))
	h.Set("Content-Type", mediaType)
	// writing into a bytes.Buffer cannot fail
	_, _ = mw.CreatePart(h)

	tail := "\r\n--" + mw.Boundary() + "--\r\n"

	total := int64(-1)
	if file.Size >= 0 {
		total = int64(head.Len()) + file.Size + int64(len(tail))
	}
	return io.MultiReader(&head, src, strings.NewReader(tail)), mw.FormDataContentType(), total
}

func (c *Client) parseReference(data []byte) (string, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.Debug("upload response is not a JSON object", "error", err, "body_size", len(data))
		return "", ErrInvalidResponseFormat
	}
	reference, ok := payload[c.referenceField].(string)
	if !ok || reference == "" {
		slog.Debug("upload response has no reference", "field", c.referenceField)
		return "", ErrInvalidResponseFormat
	}
	return reference, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// progressReader reports the share of total read so far whenever the whole
// percentage changes.
type progressReader struct {
	r      io.Reader
	sent   int64
	total  int64
	last   int
	report func(percent int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.total > 0 && p.report != nil {
			percent := int(math.Round(float64(p.sent) * 100 / float64(p.total)))
			if percent > 100 {
				percent = 100
			}
			if percent != p.last {
				p.last = percent
				p.report(percent)
			}
		}
	}
	return n, err
}
