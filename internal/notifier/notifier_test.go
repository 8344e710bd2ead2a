package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cartera-reconciler/internal/classifier"
	"cartera-reconciler/internal/models"
	"cartera-reconciler/pkg/logger"
)

var alertNow = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: logger.TextFormat, Output: logger.StderrOutput})
	if err != nil {
		t.Fatal(err)
	}
	return log
}

func TestBuildAlertMessage(t *testing.T) {
	th := classifier.DefaultThresholds()
	records := []*models.PolicyRecord{
		{Poliza: "AB-1", FechaEmision: "2026-03-27"},                       // 26 days, in window
		{Poliza: "CD-7", FechaEmision: "2026-03-05"},                       // 4 days, outside
		{Poliza: "EF-3", FechaEmision: "2026-03-28", Anulada: "pendiente"}, // void, excluded
	}

	msg, count := BuildAlertMessage(records, alertNow, th)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if !strings.Contains(msg, "AB-1") || strings.Contains(msg, "CD-7") {
		t.Errorf("unexpected message %q", msg)
	}
	if !strings.HasPrefix(msg, "⚠️") {
		t.Errorf("message missing header: %q", msg)
	}

	msg, count = BuildAlertMessage(nil, alertNow, th)
	if count != 0 || msg != "" {
		t.Errorf("empty set produced %q (%d)", msg, count)
	}
}

func TestSendAlert(t *testing.T) {
	var received alertPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(Config{WebhookURL: srv.URL, To: "whatsapp:+573242139020"}, testLogger(t))
	records := []*models.PolicyRecord{{Poliza: "AB-1", FechaEmision: "2026-03-27"}}

	count, err := n.SendAlert(context.Background(), records, alertNow, classifier.DefaultThresholds())
	if err != nil {
		t.Fatalf("SendAlert: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	if received.To != "whatsapp:+573242139020" {
		t.Errorf("to = %q", received.To)
	}
	if !strings.Contains(received.Message, "AB-1") {
		t.Errorf("message = %q", received.Message)
	}
}

func TestSendAlertEmptyWindowSkipsPost(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	n := New(Config{WebhookURL: srv.URL, To: "x"}, testLogger(t))
	count, err := n.SendAlert(context.Background(), nil, alertNow, classifier.DefaultThresholds())
	if err != nil || count != 0 {
		t.Fatalf("count = %d, err = %v", count, err)
	}
	if called {
		t.Error("webhook called for empty window")
	}
}

func TestSendAlertServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "relay down", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := New(Config{WebhookURL: srv.URL, To: "x"}, testLogger(t))
	records := []*models.PolicyRecord{{Poliza: "AB-1", FechaEmision: "2026-03-27"}}

	if _, err := n.SendAlert(context.Background(), records, alertNow, classifier.DefaultThresholds()); err == nil {
		t.Fatal("expected error on 502")
	}
}
