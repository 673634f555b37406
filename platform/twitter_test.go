package platform

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"postscheduler/oauth1"
	"postscheduler/pkg/scheduler"
)

func testSigner() *oauth1.Signer {
	return &oauth1.Signer{
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		Token:          "tok",
		TokenSecret:    "ts",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTwitterPublishSendsSignedRequest(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		if _, err := w.Write([]byte(`{"data":{"id":"1"}}`)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer srv.Close()

	tw, err := NewTwitter(testSigner(), testLogger())
	if err != nil {
		t.Fatalf("NewTwitter() error: %v", err)
	}
	tw.endpoint = srv.URL

	resp, err := tw.Publish(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if resp != `{"data":{"id":"1"}}` {
		t.Errorf("Publish() response = %q", resp)
	}

	if !strings.HasPrefix(gotAuth, "OAuth ") {
		t.Errorf("Authorization header = %q, want OAuth prefix", gotAuth)
	}
	if !strings.Contains(gotAuth, `oauth_signature="`) {
		t.Errorf("Authorization header missing signature: %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}

	var body tweetRequest
	if err := json.Unmarshal(gotBody, &body); err != nil {
		t.Fatalf("request body not JSON: %v", err)
	}
	if body.Text != "hello world" {
		t.Errorf("request text = %q", body.Text)
	}
}

func TestTwitterPublishFreshNoncePerCall(t *testing.T) {
	var headers []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = append(headers, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tw, err := NewTwitter(testSigner(), testLogger())
	if err != nil {
		t.Fatalf("NewTwitter() error: %v", err)
	}
	tw.endpoint = srv.URL

	for range 2 {
		if _, err := tw.Publish(context.Background(), "x"); err != nil {
			t.Fatalf("Publish() error: %v", err)
		}
	}

	if len(headers) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(headers))
	}
	if headers[0] == headers[1] {
		t.Error("Authorization header reused across calls; nonce/timestamp must be fresh")
	}
}

func TestTwitterPublishPlatformError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		if _, err := w.Write([]byte(`{"title":"Forbidden","detail":"duplicate content"}`)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer srv.Close()

	tw, err := NewTwitter(testSigner(), testLogger())
	if err != nil {
		t.Fatalf("NewTwitter() error: %v", err)
	}
	tw.endpoint = srv.URL

	_, err = tw.Publish(context.Background(), "hello")
	if !scheduler.IsPlatformError(err) {
		t.Fatalf("Publish() error = %v, want PlatformError", err)
	}

	var pe *scheduler.PlatformError
	if !errors.As(err, &pe) {
		t.Fatal("errors.As failed")
	}
	if pe.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", pe.StatusCode)
	}
	if pe.Body != `{"title":"Forbidden","detail":"duplicate content"}` {
		t.Errorf("Body not preserved verbatim: %q", pe.Body)
	}
}

func TestTwitterPublishTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	tw, err := NewTwitter(testSigner(), testLogger())
	if err != nil {
		t.Fatalf("NewTwitter() error: %v", err)
	}
	tw.endpoint = srv.URL

	_, err = tw.Publish(context.Background(), "hello")
	if !scheduler.IsTransportError(err) {
		t.Errorf("Publish() error = %v, want TransportError", err)
	}
}

func TestNewTwitterMissingCredentials(t *testing.T) {
	_, err := NewTwitter(&oauth1.Signer{ConsumerKey: "ck"}, testLogger())
	if !scheduler.IsConfigError(err) {
		t.Errorf("NewTwitter() error = %v, want ConfigError", err)
	}
}
