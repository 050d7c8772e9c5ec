package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/core/usecases"
)

type fakeImporter struct {
	mu    sync.Mutex
	names []string
	fail  string
}

func (f *fakeImporter) CreateFromGPX(ctx context.Context, in usecases.CreateRouteInput, data []byte) (*domain.Route, error) {
	if in.Name == f.fail {
		return nil, errors.New("broken track")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, in.Name)
	return &domain.Route{ID: "r-" + in.Name, Name: in.Name, MapID: in.MapID}, nil
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("<gpx/>"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCollectGPX(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.gpx", "b.GPX", "notes.txt")
	single := filepath.Join(t.TempDir(), "c.xml")
	if err := os.WriteFile(single, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	files, err := collectGPX([]string{dir, single})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{filepath.Join(dir, "a.gpx"), filepath.Join(dir, "b.GPX"), single}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	if _, err := collectGPX([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("expected an error for a missing path")
	}
}

func TestImportFiles_CountsFailures(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "morning.gpx", "evening.gpx", "broken.gpx")
	files, err := collectGPX([]string{dir})
	if err != nil {
		t.Fatal(err)
	}

	fake := &fakeImporter{fail: "broken"}
	sum := importFiles(context.Background(), fake, files, options{workers: 2})

	if sum.imported != 2 || sum.failed != 1 {
		t.Errorf("expected 2 imported and 1 failed, got %+v", sum)
	}
	sort.Strings(fake.names)
	if diff := cmp.Diff([]string{"evening", "morning"}, fake.names); diff != "" {
		t.Errorf("route names mismatch (-want +got):\n%s", diff)
	}
}

func TestImportFile_AttachesMap(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "ridge.gpx")

	r, err := importFile(context.Background(), &fakeImporter{}, filepath.Join(dir, "ridge.gpx"), options{mapID: "map-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.MapID == nil || *r.MapID != "map-1" {
		t.Errorf("expected map-1, got %v", r.MapID)
	}
}
