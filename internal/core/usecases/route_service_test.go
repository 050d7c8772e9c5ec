package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/core/trajectory"
	"github.com/samirrijal/mapdump/internal/core/usecases"
)

func ms(v int64) *int64 { return &v }

func sec(v float64) *float64 { return &v }

func setupRouteService(routes ...domain.Route) (*usecases.RouteService, *mockRouteRepo, *recordingPublisher, *memCache) {
	routeRepo := newMockRouteRepo(routes...)
	pub := &recordingPublisher{}
	cache := newMemCache()
	maps := usecases.NewMapService(newMockMapRepo(grenoble()), cache, pub)
	return usecases.NewRouteService(routeRepo, maps, cache, pub), routeRepo, pub, cache
}

// morningRun is one fix every 10 seconds across the Grenoble map.
func morningRun() domain.Route {
	mapID := "map-1"
	return domain.Route{
		ID:    "route-1",
		Name:  "Morning run",
		MapID: &mapID,
		Points: []domain.RoutePoint{
			{LatLon: [2]float64{45.19, 5.72}, Time: sec(1_700_000_000)},
			{LatLon: [2]float64{45.18, 5.73}, Time: sec(1_700_000_010)},
			{LatLon: [2]float64{45.17, 5.74}, Time: sec(1_700_000_020)},
			{LatLon: [2]float64{45.18, 5.75}, Time: sec(1_700_000_030)},
		},
	}
}

func TestRouteService_Create(t *testing.T) {
	svc, repo, pub, _ := setupRouteService()

	r, err := svc.Create(context.Background(), usecases.CreateRouteInput{
		Name: "Lunch loop",
		Records: []trajectory.Record{
			{Time: ms(1_700_000_000_000), LatLng: [2]float64{45.19, 5.72}},
			{Time: ms(1_700_000_060_000), LatLng: [2]float64{45.18, 5.73}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID != "route-new" {
		t.Errorf("expected repo-assigned id, got %s", r.ID)
	}
	if r.Stats.Duration == nil || *r.Stats.Duration != 60 {
		t.Errorf("expected 60s duration, got %v", r.Stats.Duration)
	}
	if r.Stats.Distance <= 0 {
		t.Errorf("expected positive distance, got %d", r.Stats.Distance)
	}
	if r.Points[1].Time == nil || *r.Points[1].Time != 1_700_000_060 {
		t.Errorf("expected time in seconds, got %v", r.Points[1].Time)
	}
	if _, ok := repo.routes["route-new"]; !ok {
		t.Error("route was not stored")
	}
	if len(pub.routeEvents) != 1 || pub.routeEvents[0].Kind != "created" || pub.routeEvents[0].RouteID != "route-new" {
		t.Errorf("unexpected route events %+v", pub.routeEvents)
	}
}

func TestRouteService_Create_Validation(t *testing.T) {
	svc, _, _, _ := setupRouteService()
	ctx := context.Background()
	missing := "nope"

	tests := []struct {
		name string
		in   usecases.CreateRouteInput
		want error
	}{
		{"empty", usecases.CreateRouteInput{Name: "x"}, domain.ErrEmptyTrajectory},
		{"no name", usecases.CreateRouteInput{Records: []trajectory.Record{{LatLng: [2]float64{1, 1}}}}, domain.ErrInvalidInput},
		{"bad coordinate", usecases.CreateRouteInput{Name: "x", Records: []trajectory.Record{{LatLng: [2]float64{100, 1}}}}, domain.ErrInvalidCoordinate},
		{"unordered", usecases.CreateRouteInput{Name: "x", Records: []trajectory.Record{
			{Time: ms(2000), LatLng: [2]float64{1, 1}},
			{Time: ms(1000), LatLng: [2]float64{1, 1}},
		}}, domain.ErrUnorderedFixes},
		{"unknown map", usecases.CreateRouteInput{Name: "x", MapID: &missing, Records: []trajectory.Record{{LatLng: [2]float64{1, 1}}}}, domain.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRouteService_CreateFromGPX(t *testing.T) {
	svc, _, _, _ := setupRouteService()
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><name>Hike</name><trkseg>
    <trkpt lat="45.19" lon="5.72"><time>2023-11-14T22:13:20Z</time></trkpt>
    <trkpt lat="45.18" lon="5.73"><time>2023-11-14T22:13:30Z</time></trkpt>
  </trkseg></trk>
</gpx>`

	r, err := svc.CreateFromGPX(context.Background(), usecases.CreateRouteInput{Name: "Hike"}, []byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(r.Points))
	}
	if r.Stats.Duration == nil || *r.Stats.Duration != 10 {
		t.Errorf("expected 10s duration, got %v", r.Stats.Duration)
	}

	if _, err := svc.CreateFromGPX(context.Background(), usecases.CreateRouteInput{Name: "x"}, []byte("not xml")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRouteService_CreateDrawnPath(t *testing.T) {
	svc, _, _, _ := setupRouteService()

	r, err := svc.CreateDrawnPath(context.Background(), "map-1", "Sketch", []domain.PixelPoint{
		{X: 0, Y: 0}, {X: 2000, Y: 1500}, {X: 4000, Y: 3000},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.MapID == nil || *r.MapID != "map-1" {
		t.Errorf("expected route on map-1, got %v", r.MapID)
	}
	if r.Stats.Duration != nil {
		t.Error("drawn paths are untimed")
	}
	if !near(r.Points[0].LatLon[0], 45.2, 1e-9) || !near(r.Points[2].LatLon[1], 5.77, 1e-9) {
		t.Errorf("expected path to start and end on the map corners, got %+v", r.Points)
	}
	for _, p := range r.Points {
		if p.Time != nil {
			t.Error("drawn path points must have a null time")
		}
	}

	if _, err := svc.CreateDrawnPath(context.Background(), "nope", "Sketch", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRouteService_Position(t *testing.T) {
	svc, _, _, _ := setupRouteService(morningRun())

	f, ok, err := svc.Position(context.Background(), "route-1", 1_700_000_005_000, trajectory.Clamp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a position")
	}
	if !near(f.Position.Lat, 45.185, 1e-9) || !near(f.Position.Lon, 5.725, 1e-9) {
		t.Errorf("expected halfway position, got %+v", f.Position)
	}

	_, ok, err = svc.Position(context.Background(), "route-1", 1_600_000_000_000, trajectory.Exclude)
	if err != nil || ok {
		t.Errorf("expected no position before the route, got ok=%v err=%v", ok, err)
	}
}

func TestRouteService_Crop_ByTime(t *testing.T) {
	svc, repo, pub, cache := setupRouteService(morningRun())

	r, err := svc.Crop(context.Background(), "route-1", usecases.CropInput{
		Start: ms(1_700_000_010_000),
		End:   ms(1_700_000_020_000),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(r.Points))
	}
	if got := repo.routes["route-1"]; len(got.Points) != 2 || *got.Stats.Duration != 10 {
		t.Errorf("crop not persisted: %+v", got)
	}
	if len(pub.routeEvents) != 1 || pub.routeEvents[0].Kind != "cropped" {
		t.Errorf("unexpected route events %+v", pub.routeEvents)
	}
	if len(cache.deleted) == 0 || !strings.HasSuffix(cache.deleted[0], "route-1") {
		t.Errorf("expected cache invalidation, got %v", cache.deleted)
	}
}

func TestRouteService_Crop_ByProgress(t *testing.T) {
	svc, _, _, _ := setupRouteService(morningRun())

	lo, hi := 25.0, 75.0
	r, err := svc.Crop(context.Background(), "route-1", usecases.CropInput{Lo: &lo, Hi: &hi})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// floor(1) through ceil(3), exclusive.
	if len(r.Points) != 2 || r.Points[0].LatLon != [2]float64{45.18, 5.73} {
		t.Errorf("unexpected points %+v", r.Points)
	}
}

func TestRouteService_Crop_Errors(t *testing.T) {
	svc, _, _, _ := setupRouteService(morningRun())
	ctx := context.Background()
	lo, hi := 10.0, 20.0

	if _, err := svc.Crop(ctx, "route-1", usecases.CropInput{Start: ms(0), End: ms(1), Lo: &lo, Hi: &hi}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Crop(ctx, "route-1", usecases.CropInput{Start: ms(0), End: ms(1)}); !errors.Is(err, domain.ErrEmptyTrajectory) {
		t.Errorf("expected ErrEmptyTrajectory, got %v", err)
	}
	if _, err := svc.Crop(ctx, "route-1", usecases.CropInput{Lo: &hi, Hi: &lo}); !errors.Is(err, domain.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := svc.Crop(ctx, "missing", usecases.CropInput{Lo: &lo, Hi: &hi}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRouteService_RecomputeStats(t *testing.T) {
	svc, repo, _, _ := setupRouteService(morningRun())

	stats, err := svc.RecomputeStats(context.Background(), "route-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Duration == nil || *stats.Duration != 30 {
		t.Errorf("expected 30s duration, got %v", stats.Duration)
	}
	if stats.StartTime.Unix() != 1_700_000_000 {
		t.Errorf("unexpected start time %v", stats.StartTime)
	}
	if len(repo.updatedStats) != 1 {
		t.Errorf("expected stats to be saved once, got %v", repo.updatedStats)
	}
}

func TestRouteService_Exports(t *testing.T) {
	svc, _, _, _ := setupRouteService(morningRun())
	ctx := context.Background()

	data, name, err := svc.GPX(ctx, "route-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Morning run" || !strings.Contains(string(data), "<trkpt") {
		t.Errorf("unexpected gpx %s", data)
	}

	data, err = svc.GeoJSON(ctx, "route-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), `"LineString"`) || !strings.Contains(string(data), `"Polygon"`) {
		t.Errorf("expected route and map outline, got %s", data)
	}
}
