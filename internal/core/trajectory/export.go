package trajectory

import (
	"bytes"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/pkg/geospatial"
)

const gpxCreator = "Mapdump.com"

// GPX encodes the trajectory as a single-track GPX 1.1 document.
func (t *Trajectory) GPX(name string) ([]byte, error) {
	seg := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, 0, len(t.fixes))}
	for _, f := range t.fixes {
		p := gpx.GPXPoint{Point: gpx.Point{Latitude: f.Position.Lat, Longitude: f.Position.Lon}}
		if f.HasTime {
			p.Timestamp = time.UnixMilli(f.Time).UTC()
		}
		seg.Points = append(seg.Points, p)
	}

	doc := &gpx.GPX{
		Version: "1.1",
		Creator: gpxCreator,
		Tracks: []gpx.GPXTrack{{
			Name:     name,
			Segments: []gpx.GPXTrackSegment{seg},
		}},
	}
	out, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("encode gpx: %w", err)
	}
	return out, nil
}

// ParseGPX reads every track point of a GPX document, in file order.
// Points without a time produce untimed fixes.
func ParseGPX(data []byte) (*Trajectory, error) {
	doc, err := gpx.ParseBytes(bytes.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("parse gpx: %w", err)
	}
	var fixes []Fix
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, p := range seg.Points {
				f := UntimedFix(p.Latitude, p.Longitude)
				if !p.Timestamp.IsZero() {
					f.Time, f.HasTime = p.Timestamp.UnixMilli(), true
				}
				fixes = append(fixes, f)
			}
		}
	}
	return New(fixes)
}

// GeoJSON encodes the trajectory as a LineString feature, with the outline
// of the map it is drawn on when corners are given.
func (t *Trajectory) GeoJSON(name string, corners *domain.Corners) ([]byte, error) {
	line := make(orb.LineString, 0, len(t.fixes))
	for _, f := range t.fixes {
		line = append(line, orb.Point{f.Position.Lon, f.Position.Lat})
	}

	feat := geojson.NewFeature(line)
	feat.Properties["name"] = name
	if t.timed {
		times := make([]int64, len(t.fixes))
		for i, f := range t.fixes {
			times[i] = f.Time
		}
		feat.Properties["times"] = times
	}

	fc := geojson.NewFeatureCollection().Append(feat)
	if corners != nil {
		fc.Append(geospatial.CornersFeature(*corners))
	}
	return fc.MarshalJSON()
}
