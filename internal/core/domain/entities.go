package domain

import (
	"time"
)

// RasterMap is an uploaded map image anchored to the ground by its corners.
type RasterMap struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Corners    Corners   `json:"corners"`
	MimeType   string    `json:"mime_type"`
	ImageKey   string    `json:"image_key,omitempty"` // object storage key, image bytes live elsewhere
	Center     GeoPoint  `json:"center"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// RoutePoint is the persisted shape of one trajectory fix.
// Time is in seconds since the Unix epoch, nil for untimed routes.
type RoutePoint struct {
	LatLon [2]float64 `json:"latlon"`
	Time   *float64   `json:"time"`
}

// Route is a recorded or drawn track, optionally replayed on a raster map.
type Route struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	MapID      *string      `json:"map_id,omitempty"`
	Private    bool         `json:"private"`
	Comment    string       `json:"comment,omitempty"`
	Points     []RoutePoint `json:"route"`
	Stats      RouteStats   `json:"stats"`
	CreatedAt  time.Time    `json:"created_at"`
	ModifiedAt time.Time    `json:"modified_at"`
}

// RouteStats are derived from the route points and refreshed on every edit.
type RouteStats struct {
	StartTime time.Time `json:"start_time"`
	Duration  *int64    `json:"duration,omitempty"` // seconds
	Distance  int64     `json:"distance"`           // meters
	Bounds    Bounds    `json:"bounds"`
}

// RouteSummary is the list view of a route, without its points.
type RouteSummary struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	MapID     *string    `json:"map_id,omitempty"`
	Stats     RouteStats `json:"stats"`
	CreatedAt time.Time  `json:"created_at"`
}

// RouteEvent is published whenever a route is created or edited.
type RouteEvent struct {
	ID      string    `json:"id"`
	RouteID string    `json:"route_id"`
	Kind    string    `json:"kind"` // "created", "cropped" or "enriched"
	At      time.Time `json:"at"`
}

// MapEvent is published when a map is calibrated or re-calibrated.
type MapEvent struct {
	ID      string    `json:"id"`
	MapID   string    `json:"map_id"`
	Corners string    `json:"corners"`
	At      time.Time `json:"at"`
}
