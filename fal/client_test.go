package fal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/raushankrgupta/fitly-tryon/tryon"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("secret", WithBaseURL(srv.URL+"/fashn/tryon"), WithHTTPClient(srv.Client()))
}

func codeOf(t *testing.T, err error) *tryon.Error {
	t.Helper()
	var te *tryon.Error
	if !errors.As(err, &te) {
		t.Fatalf("expected *tryon.Error, got %T: %v", err, err)
	}
	return te
}

func TestSubmitSendsPayloadAndKey(t *testing.T) {
	var got tryon.SubmitRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/fashn/tryon" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Key secret" {
			t.Errorf("unexpected Authorization header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"request_id":"req-42"}`))
	})

	req := tryon.SubmitRequest{
		ModelImage:    "data:image/jpeg;base64,AAA",
		GarmentImage:  "data:image/jpeg;base64,BBB",
		Category:      "tops",
		NumSamples:    1,
		GuidanceScale: 2.0,
		Timesteps:     50,
	}
	id, err := client.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if id != "req-42" {
		t.Fatalf("unexpected request id %q", id)
	}
	if diff := cmp.Diff(req, got); diff != "" {
		t.Fatalf("submitted payload mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitEmptyRequestID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"request_id":""}`))
	})

	_, err := client.Submit(context.Background(), tryon.SubmitRequest{})
	if te := codeOf(t, err); te.Code != tryon.CodeInvalidResponse {
		t.Fatalf("unexpected code %s", te.Code)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode tryon.Code
		wantMsg  string
	}{
		{"bad request with detail", 400, `{"detail":"category is invalid"}`, tryon.CodeInvalidRequest, "invalid request: category is invalid"},
		{"bad request with error", 400, `{"error":"missing image"}`, tryon.CodeInvalidRequest, "invalid request: missing image"},
		{"unauthorized", 401, `{}`, tryon.CodeAuth, "invalid API key"},
		{"forbidden", 403, ``, tryon.CodeAuth, "invalid API key"},
		{"rate limited", 429, `{"message":"slow down"}`, tryon.CodeRateLimit, "rate limit exceeded, please try again later"},
		{"server error", 500, `{"error":"gpu on fire"}`, tryon.CodeAPI, "synthesis API error: gpu on fire"},
		{"bad gateway no body", 502, ``, tryon.CodeAPI, "synthesis API error: Bad Gateway"},
		{"other with message", 422, `{"message":"unprocessable garment"}`, tryon.CodeAPI, "unprocessable garment"},
		{"other without body", 404, `not json`, tryon.CodeAPI, "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.Submit(context.Background(), tryon.SubmitRequest{})
			te := codeOf(t, err)
			if te.Code != tt.wantCode {
				t.Fatalf("unexpected code: got %s want %s", te.Code, tt.wantCode)
			}
			if te.Message != tt.wantMsg {
				t.Fatalf("unexpected message: got %q want %q", te.Message, tt.wantMsg)
			}
			if te.StatusCode != tt.status {
				t.Fatalf("unexpected status code %d", te.StatusCode)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClient("secret", WithBaseURL(srv.URL))
	srv.Close()

	_, err := client.Status(context.Background(), "req-1")
	if te := codeOf(t, err); te.Code != tryon.CodeNetwork {
		t.Fatalf("unexpected code %s", te.Code)
	}
}

func TestStatusAndResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fashn/tryon/requests/req-1/status":
			w.Write([]byte(`{"status":"IN_PROGRESS"}`))
		case "/fashn/tryon/requests/req-1":
			w.Write([]byte(`{"images":[{"url":"https://cdn.fal.test/out.png","content_type":"image/png"}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	status, err := client.Status(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status != tryon.StatusInProgress {
		t.Fatalf("unexpected status %q", status)
	}

	res, err := client.Result(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("Result returned error: %v", err)
	}
	want := &tryon.JobResult{Images: []tryon.ResultImage{{URL: "https://cdn.fal.test/out.png", ContentType: "image/png"}}}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestMalformedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":`))
	})

	_, err := client.Status(context.Background(), "req-1")
	if te := codeOf(t, err); te.Code != tryon.CodeInvalidResponse {
		t.Fatalf("unexpected code %s", te.Code)
	}
}

func TestDownload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	})
	base := client.baseURL[:len(client.baseURL)-len("/fashn/tryon")]

	data, contentType, err := client.Download(context.Background(), base+"/out.png")
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if string(data) != "png-bytes" || contentType != "image/png" {
		t.Fatalf("unexpected download: %q %q", data, contentType)
	}

	_, _, err = client.Download(context.Background(), base+"/missing.png")
	if te := codeOf(t, err); te.Code != tryon.CodeAPI {
		t.Fatalf("unexpected code %s", te.Code)
	}
}
