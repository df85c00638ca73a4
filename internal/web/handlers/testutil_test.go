package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jkratochvil/facemark/internal/attendance"
	"github.com/jkratochvil/facemark/internal/config"
	"github.com/jkratochvil/facemark/internal/store/mock"
)

func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, want int) {
	t.Helper()
	if recorder.Code != want {
		t.Fatalf("status %d, want %d, body: %s", recorder.Code, want, recorder.Body.String())
	}
}

func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(recorder.Body).Decode(target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func testResolver(repo *mock.Repo) *attendance.Resolver {
	cfg := config.AttendanceConfig{
		SlotBufferMin:   45,
		WindowLiveMin:   60,
		WindowManualMin: 20,
		WindowBulkMin:   10,
		CooldownMin:     60,
	}
	return attendance.NewResolver(repo, repo, repo, cfg)
}

// multipartImage builds a multipart body with an image file plus form fields.
func multipartImage(t *testing.T, image []byte, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("image", "frame.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(image); err != nil {
		t.Fatal(err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, writer.FormDataContentType()
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}
