// Package replay animates a timed route over a calibrated map.
package replay

import (
	"fmt"
	"math"
	"time"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/core/trajectory"
	"github.com/samirrijal/mapdump/internal/pkg/geospatial"
)

const (
	DefaultFPS          = 15
	DefaultTail         = 60 * time.Second
	DefaultMarkerWindow = 30 * time.Second
	// DefaultSpeed is the multiplier a new session starts at.
	DefaultSpeed = 8.0
)

// Options tune the animation.
type Options struct {
	FPS int
	// Tail is how much recent route time is drawn behind the marker.
	Tail time.Duration
	// MarkerWindow hides the marker when no fix was recorded within it,
	// so that gaps in the recording are not bridged by interpolation.
	MarkerWindow time.Duration
}

// DefaultOptions returns the standard replay settings.
func DefaultOptions() Options {
	return Options{FPS: DefaultFPS, Tail: DefaultTail, MarkerWindow: DefaultMarkerWindow}
}

// Point is a route position with its place on the map image, when known.
type Point struct {
	Geo   domain.GeoPoint    `json:"geo"`
	Pixel *domain.PixelPoint `json:"pixel,omitempty"`
}

// Frame is what is drawn at one instant of the replay.
type Frame struct {
	Progress float64 `json:"progress"`
	Time     int64   `json:"time"`
	Elapsed  string  `json:"elapsed"`
	Marker   *Point  `json:"marker,omitempty"`
	Tail     []Point `json:"tail"`
}

// Player computes frames for one route. It is immutable and safe for
// concurrent use.
type Player struct {
	route     *trajectory.Trajectory
	transform *geospatial.Transform
	opts      Options
	first     int64
	last      int64
}

// NewPlayer prepares a replay. The transform may be nil, in which case
// frames carry geographic positions only.
func NewPlayer(route *trajectory.Trajectory, transform *geospatial.Transform, opts Options) (*Player, error) {
	first, err := route.StartTime()
	if err != nil {
		return nil, err
	}
	last, err := route.EndTime()
	if err != nil {
		return nil, err
	}
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.Tail <= 0 {
		opts.Tail = DefaultTail
	}
	if opts.MarkerWindow <= 0 {
		opts.MarkerWindow = DefaultMarkerWindow
	}
	return &Player{route: route, transform: transform, opts: opts, first: first, last: last}, nil
}

// FPS is the tick rate the player was configured with.
func (p *Player) FPS() int { return p.opts.FPS }

// TimeAt maps a progress percentage to route time in milliseconds.
func (p *Player) TimeAt(progress float64) int64 {
	progress = clampProgress(progress)
	return p.first + int64(math.Round(float64(p.last-p.first)*progress/100))
}

// ProgressAt maps route time to a progress percentage.
func (p *Player) ProgressAt(ms int64) float64 {
	if p.last == p.first {
		return 100
	}
	return clampProgress(float64(ms-p.first) / float64(p.last-p.first) * 100)
}

// Advance moves progress forward by one tick at the given speed. done is
// set once the end of the route is reached.
func (p *Player) Advance(progress, speed float64) (next float64, done bool) {
	step := speed / float64(p.opts.FPS) * 1000
	next = math.Min(100, p.ProgressAt(p.TimeAt(progress)+int64(math.Round(step))))
	return next, next >= 100
}

// Frame computes the marker and tail at a progress percentage.
func (p *Player) Frame(progress float64) (Frame, error) {
	progress = clampProgress(progress)
	now := p.TimeAt(progress)
	f := Frame{Progress: progress, Time: now, Elapsed: formatElapsed(now - p.first), Tail: []Point{}}

	recent, err := p.route.HasFixInInterval(now-p.opts.MarkerWindow.Milliseconds(), now)
	if err != nil {
		return Frame{}, err
	}
	if recent {
		fix, ok, err := p.route.PositionAt(now, trajectory.Clamp)
		if err != nil {
			return Frame{}, err
		}
		if ok {
			pt := p.point(fix.Position)
			f.Marker = &pt
		}
	}

	tail, err := p.route.ExtractInterval(now-p.opts.Tail.Milliseconds(), now)
	if err != nil {
		return Frame{}, err
	}
	for _, pos := range tail.Positions() {
		f.Tail = append(f.Tail, p.point(pos))
	}
	return f, nil
}

func (p *Player) point(g domain.GeoPoint) Point {
	pt := Point{Geo: g}
	if p.transform != nil {
		if px, err := p.transform.Inverse(g); err == nil {
			pt.Pixel = &px
		}
	}
	return pt
}

// Faster doubles the playback speed.
func Faster(speed float64) float64 { return speed * 2 }

// Slower halves the playback speed, never below real time.
func Slower(speed float64) float64 { return math.Max(1, speed/2) }

func clampProgress(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, 100)
}

func formatElapsed(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	s := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}
