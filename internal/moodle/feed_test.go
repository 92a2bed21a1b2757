package moodle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edusync/moodle-sync/internal/platform/logger"
)

func feedTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatal(err)
	}
	return log
}

func TestFeedClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q, want application/json", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"moodlecourses": [{"files": [{"fileurl": "https://moodle.example.org/f/1"}]}]}`))
	}))
	defer srv.Close()

	client, err := NewFeedClient(feedTestLogger(t), srv.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	batch, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	files := batch.Files()
	if len(files) != 1 || files[0].FileURL != "https://moodle.example.org/f/1" {
		t.Errorf("unexpected batch contents: %+v", files)
	}
}

func TestFeedClientFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewFeedClient(feedTestLogger(t), srv.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Fetch(context.Background()); err == nil {
		t.Fatal("expected an error for a 503 response")
	}
}

func TestFeedClientFetchBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client, err := NewFeedClient(feedTestLogger(t), srv.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Fetch(context.Background()); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestNewFeedClientRequiresURL(t *testing.T) {
	if _, err := NewFeedClient(feedTestLogger(t), "   ", time.Second); err == nil {
		t.Fatal("expected an error for a blank url")
	}
}
