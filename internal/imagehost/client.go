// Package imagehost wraps the external image-archive upload endpoint.
package imagehost

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/studypal/server/internal/shared"
)

// Client uploads solver images to the external image host for archival.
// The host returns opaque JSON which is not validated; callers only care
// whether the upload was accepted.
type Client struct {
	url   string
	httpc *http.Client
}

// NewClient creates an upload client. An empty URL disables uploads; Upload
// becomes a no-op so the solver does not need to special-case it.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		httpc: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Upload sends an image with the uploader's email as the caption.
func (c *Client) Upload(ctx context.Context, image []byte, filename, caption string) error {
	if c.url == "" {
		return nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	if err := mw.WriteField("caption", caption); err != nil {
		return fmt.Errorf("write caption field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: image host: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: image host: status %d", shared.ErrUpstream, resp.StatusCode)
	}
	return nil
}
