package captcha

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVerifyAcceptsSuccessResponse(t *testing.T) {
	var gotToken, gotRemoteIP string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm failed: %v", err)
		}
		gotToken = r.PostFormValue("response")
		gotRemoteIP = r.PostFormValue("remoteip")
		if r.PostFormValue("secret") != "secret-key" {
			t.Fatalf("unexpected secret %q", r.PostFormValue("secret"))
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	v, err := NewVerifier(srv.URL, "secret-key", srv.Client())
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}
	if err := v.Verify(context.Background(), "tok-123", "10.1.2.3"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if gotToken != "tok-123" || gotRemoteIP != "10.1.2.3" {
		t.Fatalf("sent token=%q remoteip=%q", gotToken, gotRemoteIP)
	}
}

func TestVerifyRejectsFailureAndEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	v, err := NewVerifier(srv.URL, "secret-key", srv.Client())
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}
	if err := v.Verify(context.Background(), "bad", ""); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	if err := v.Verify(context.Background(), "", ""); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed for empty token, got %v", err)
	}
}

func TestVerifySurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v, err := NewVerifier(srv.URL, "secret-key", srv.Client())
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}
	if err := v.Verify(context.Background(), "tok", ""); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestNewVerifierValidation(t *testing.T) {
	if _, err := NewVerifier("", "s", nil); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
	if _, err := NewVerifier("https://example.com", "", nil); err == nil {
		t.Fatal("expected error for missing secret")
	}
}
