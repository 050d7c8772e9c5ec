package geospatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/mapdump/internal/core/domain"
)

// CornersFeature returns the map outline as a closed GeoJSON polygon.
func CornersFeature(c domain.Corners) *geojson.Feature {
	pts := c.Points()
	ring := make(orb.Ring, 0, 5)
	for _, p := range pts {
		ring = append(ring, orb.Point{p.Lon, p.Lat})
	}
	ring = append(ring, ring[0])

	f := geojson.NewFeature(orb.Polygon{ring})
	f.Properties["kind"] = "map"
	f.Properties["corners"] = FormatCorners(c)
	return f
}
