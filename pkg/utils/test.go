package utils

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequest(t *testing.T, method string, url string, body io.Reader, handler func(http.ResponseWriter, *http.Request)) *httptest.ResponseRecorder {
	headers := map[string][]string{
		"Content-Type": {"application/json"},
	}

	return TestRequestWithHeaders(t, method, url, headers, body, handler)
}

func TestRequestWithHeaders(t *testing.T, method string, url string, headers map[string][]string, body io.Reader, handler func(http.ResponseWriter, *http.Request)) *httptest.ResponseRecorder {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatal(err)
	}

	for k, v := range headers {
		for _, h := range v {
			req.Header.Add(k, h)
		}
	}

	w := httptest.NewRecorder()
	handler(w, req)

	return w
}

func TestExpectedStatus(t *testing.T, rr *httptest.ResponseRecorder, statusCode int) {
	t.Helper()

	if rr.Code != statusCode {
		t.Errorf("expected status code %d, got %d", statusCode, rr.Code)
	}
}

func TestExpectedMessage(t *testing.T, rr *httptest.ResponseRecorder, m string) {
	t.Helper()

	if !strings.Contains(rr.Body.String(), m) {
		t.Errorf("received message `%s`, expected message `%s`", rr.Body.String(), m)
	}
}

// TestDecodeBody unmarshals the recorded JSON response into v.
func TestDecodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response body `%s`: %v", rr.Body.String(), err)
	}
}
