package trajectory

import (
	"math"

	"github.com/samirrijal/mapdump/internal/core/domain"
)

// Record is the normalized fix shape handed over by file and stream
// parsers. Time is milliseconds since the Unix epoch.
type Record struct {
	Time   *int64     `json:"time"`
	LatLng [2]float64 `json:"latlng"`
}

// FromRecords builds a trajectory from parser output.
func FromRecords(records []Record) (*Trajectory, error) {
	fixes := make([]Fix, len(records))
	for i, r := range records {
		fixes[i] = Fix{Position: domain.GeoPoint{Lat: r.LatLng[0], Lon: r.LatLng[1]}}
		if r.Time != nil {
			fixes[i].Time, fixes[i].HasTime = *r.Time, true
		}
	}
	return New(fixes)
}

// FromRoutePoints rebuilds a trajectory from its persisted form.
func FromRoutePoints(points []domain.RoutePoint) (*Trajectory, error) {
	fixes := make([]Fix, len(points))
	for i, p := range points {
		fixes[i] = Fix{Position: domain.GeoPoint{Lat: p.LatLon[0], Lon: p.LatLon[1]}}
		if p.Time != nil {
			fixes[i].Time, fixes[i].HasTime = int64(math.Round(*p.Time*1000)), true
		}
	}
	return New(fixes)
}

// Export returns the persisted form: coordinates plus seconds since the
// epoch, or a null time for untimed fixes.
func (t *Trajectory) Export() []domain.RoutePoint {
	out := make([]domain.RoutePoint, len(t.fixes))
	for i, f := range t.fixes {
		out[i].LatLon = [2]float64{f.Position.Lat, f.Position.Lon}
		if f.HasTime {
			s := float64(f.Time) / 1000
			out[i].Time = &s
		}
	}
	return out
}

// Records is the inverse of FromRecords.
func (t *Trajectory) Records() []Record {
	out := make([]Record, len(t.fixes))
	for i, f := range t.fixes {
		out[i].LatLng = [2]float64{f.Position.Lat, f.Position.Lon}
		if f.HasTime {
			ms := f.Time
			out[i].Time = &ms
		}
	}
	return out
}
