// Package ocr wraps the external OCR HTTP service.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/studypal/server/internal/shared"
)

// Client calls the OCR endpoint: a multipart POST with an "image" field,
// returning {"text": "..."} on success.
type Client struct {
	url   string
	httpc *http.Client
}

// NewClient creates an OCR client for the given endpoint URL.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		httpc: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// WithHTTPClient overrides the internal HTTP client (e.g., for tests or
// custom timeouts).
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h != nil {
		c.httpc = h
	}
	return c
}

// Recognize submits an image and returns the extracted plain text.
func (c *Client) Recognize(ctx context.Context, image []byte, filename string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("write image part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return "", fmt.Errorf("build OCR request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: ocr: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: ocr: status %d: %s", shared.ErrUpstream, resp.StatusCode, body)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: ocr: decode response: %v", shared.ErrUpstream, err)
	}
	return out.Text, nil
}
