package download

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	f := NewFetcher(filepath.Join(t.TempDir(), "cache"))
	f.retryDelay = time.Millisecond
	return f
}

func TestFetchCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, "payload")
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	ctx := context.Background()

	path, err := f.Fetch(ctx, srv.URL+"/japan.osm.pbf", "japan.osm.pbf", false)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "payload" {
		t.Fatalf("cached file = %q, %v", data, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	if _, err := f.Fetch(ctx, srv.URL+"/japan.osm.pbf", "japan.osm.pbf", false); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1 (second fetch cached)", hits.Load())
	}

	if _, err := f.Fetch(ctx, srv.URL+"/japan.osm.pbf", "japan.osm.pbf", true); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hit %d times, want 2 after force", hits.Load())
	}
}

func TestFetchRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	if _, err := f.Fetch(context.Background(), srv.URL, "file", false); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("server hit %d times, want 3", hits.Load())
	}
}

func TestFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	ctx := context.Background()

	if _, err := f.Fetch(ctx, srv.URL+"/missing", "a", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("404 error = %v, want ErrNotFound", err)
	}
	if _, err := f.Fetch(ctx, srv.URL+"/forbidden", "b", false); err == nil {
		t.Error("403 should fail")
	}
	if _, err := f.Fetch(ctx, srv.URL+"/broken", "c", false); err == nil {
		t.Error("persistent 500 should fail")
	}
	if _, err := os.Stat(f.CachePath("a")); !os.IsNotExist(err) {
		t.Error("failed download left a cache file")
	}
}

func TestOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "remote")
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	ctx := context.Background()

	local := filepath.Join(t.TempDir(), "local.geojson")
	if err := os.WriteFile(local, []byte("local"), 0644); err != nil {
		t.Fatal(err)
	}

	for source, want := range map[string]string{local: "local", srv.URL + "/japan.geojson": "remote"} {
		rc, err := f.Open(ctx, source, "japan.geojson")
		if err != nil {
			t.Fatalf("Open(%s) error: %v", source, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if string(data) != want {
			t.Errorf("Open(%s) = %q, want %q", source, data, want)
		}
	}
}
