package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_DetectPrimary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect/hog" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		json.NewEncoder(w).Encode(detectResponse{
			FacesCount: 1,
			Regions:    []Region{{Top: 10, Right: 110, Bottom: 110, Left: 10}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	regions, err := client.DetectPrimary(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0x00})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 1 || regions[0].Top != 10 {
		t.Errorf("unexpected regions: %v", regions)
	}
}

func TestClient_DetectCascade_SensitivityParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("min_neighbors"); got != "6" {
			t.Errorf("expected min_neighbors=6, got %q", got)
		}
		if got := r.URL.Query().Get("min_size"); got != "40" {
			t.Errorf("expected min_size=40, got %q", got)
		}
		json.NewEncoder(w).Encode(detectResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.DetectCascade(context.Background(), []byte("img"), CascadeOptions{MinNeighbors: 6, MinSize: 40})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_Encode_VectorCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(encodeResponse{Dim: 128, Vectors: [][]float32{{0.1, 0.2}}})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	regions := []Region{{Top: 0, Right: 10, Bottom: 10, Left: 0}, {Top: 20, Right: 30, Bottom: 30, Left: 20}}
	if _, err := client.Encode(context.Background(), []byte("img"), regions); err == nil {
		t.Error("expected error on vector/region count mismatch")
	}
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no face found", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.DetectPrimary(context.Background(), []byte("img")); err == nil {
		t.Error("expected error on non-200 response")
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"short", []byte{0x01}, "application/octet-stream"},
		{"unknown", []byte{0, 1, 2, 3, 4, 5, 6, 7}, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.expected {
				t.Errorf("detectMIMEType() = %s, want %s", got, tt.expected)
			}
		})
	}
}
