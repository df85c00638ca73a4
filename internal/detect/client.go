package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
)

const defaultDetectorURL = "http://localhost:8000"

// EncodingDim is the fixed dimension of identity vectors produced by the
// sidecar's dlib-based encoder.
const EncodingDim = 128

// CascadeOptions tune the secondary cascade detector.
type CascadeOptions struct {
	MinNeighbors int // neighbor confirmations required to accept a candidate
	MinSize      int // minimum face edge in pixels
}

// Client talks to the detection sidecar over HTTP. The sidecar exposes the
// detectors and the identity-vector encoder; this process never touches raw
// pixel models directly.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a detection sidecar client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// detectResponse represents the response from the detection endpoints.
type detectResponse struct {
	FacesCount int      `json:"faces_count"`
	Regions    []Region `json:"regions"`
}

// encodeResponse represents the response from the encode endpoint.
type encodeResponse struct {
	Dim     int         `json:"dim"`
	Vectors [][]float32 `json:"vectors"`
}

// postMultipartImage constructs a multipart form with the image data plus any
// extra fields and posts it to the given endpoint.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte, fields map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// DetectPrimary runs the gradient-based detector over the image.
func (c *Client) DetectPrimary(ctx context.Context, imageData []byte) ([]Region, error) {
	body, err := c.postMultipartImage(ctx, "/detect/hog", imageData, nil)
	if err != nil {
		return nil, err
	}

	var detResp detectResponse
	if err := json.Unmarshal(body, &detResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return detResp.Regions, nil
}

// DetectCascade runs the cascade detector with the given sensitivity.
func (c *Client) DetectCascade(ctx context.Context, imageData []byte, opts CascadeOptions) ([]Region, error) {
	q := url.Values{}
	if opts.MinNeighbors > 0 {
		q.Set("min_neighbors", strconv.Itoa(opts.MinNeighbors))
	}
	if opts.MinSize > 0 {
		q.Set("min_size", strconv.Itoa(opts.MinSize))
	}
	endpoint := "/detect/cascade"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	body, err := c.postMultipartImage(ctx, endpoint, imageData, nil)
	if err != nil {
		return nil, err
	}

	var detResp detectResponse
	if err := json.Unmarshal(body, &detResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return detResp.Regions, nil
}

// Encode returns one identity vector per supplied region, in region order.
// The regions are passed as a JSON form field next to the image part.
func (c *Client) Encode(ctx context.Context, imageData []byte, regions []Region) ([][]float32, error) {
	regionsJSON, err := json.Marshal(regions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal regions: %w", err)
	}

	body, err := c.postMultipartImage(ctx, "/encode", imageData, map[string]string{
		"regions": string(regionsJSON),
	})
	if err != nil {
		return nil, err
	}

	var encResp encodeResponse
	if err := json.Unmarshal(body, &encResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(encResp.Vectors) != len(regions) {
		return nil, fmt.Errorf("encoder returned %d vectors for %d regions", len(encResp.Vectors), len(regions))
	}
	for _, v := range encResp.Vectors {
		if len(v) == 0 {
			return nil, errors.New("empty vector returned")
		}
	}

	return encResp.Vectors, nil
}

// detectMIMEType detects the MIME type from image data.
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
