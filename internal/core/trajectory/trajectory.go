// Package trajectory holds recorded routes as immutable, time-ordered
// sequences of GPS fixes with binary-search time queries.
package trajectory

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/pkg/geospatial"
)

// Fix is one sample of a route. Time is milliseconds since the Unix epoch
// and is meaningful only when HasTime is set.
type Fix struct {
	Time     int64
	HasTime  bool
	Position domain.GeoPoint
}

// TimedFix builds a fix with a timestamp.
func TimedFix(ms int64, lat, lon float64) Fix {
	return Fix{Time: ms, HasTime: true, Position: domain.GeoPoint{Lat: lat, Lon: lon}}
}

// UntimedFix builds a fix without a timestamp, as produced by drawn paths.
func UntimedFix(lat, lon float64) Fix {
	return Fix{Position: domain.GeoPoint{Lat: lat, Lon: lon}}
}

// BoundaryPolicy decides what PositionAt returns outside the recorded span.
type BoundaryPolicy int

const (
	// Clamp returns the first or last fix.
	Clamp BoundaryPolicy = iota
	// Exclude reports no position.
	Exclude
)

// Trajectory is an immutable sequence of fixes in chronological order.
// Time-based queries are only available when every fix has a timestamp.
type Trajectory struct {
	fixes []Fix
	timed bool
}

// New validates and copies fixes. Timestamps, when all present, must be
// non-decreasing.
func New(fixes []Fix) (*Trajectory, error) {
	out := make([]Fix, len(fixes))
	copy(out, fixes)

	timed := len(out) > 0
	for i, f := range out {
		if err := f.Position.Validate(); err != nil {
			return nil, fmt.Errorf("fix %d: %w", i, err)
		}
		if !f.HasTime {
			timed = false
		}
	}
	if timed {
		for i := 1; i < len(out); i++ {
			if out[i].Time < out[i-1].Time {
				return nil, fmt.Errorf("%w: fix %d at %d precedes fix %d at %d",
					domain.ErrUnorderedFixes, i, out[i].Time, i-1, out[i-1].Time)
			}
		}
	}
	return &Trajectory{fixes: out, timed: timed}, nil
}

// Len returns the number of fixes.
func (t *Trajectory) Len() int { return len(t.fixes) }

// Timed reports whether time-based queries are available.
func (t *Trajectory) Timed() bool { return t.timed }

// At returns the fix at index i.
func (t *Trajectory) At(i int) (Fix, error) {
	if i < 0 || i >= len(t.fixes) {
		return Fix{}, fmt.Errorf("%w: %d not in [0, %d)", domain.ErrOutOfRange, i, len(t.fixes))
	}
	return t.fixes[i], nil
}

// Fixes returns a copy of all fixes.
func (t *Trajectory) Fixes() []Fix {
	out := make([]Fix, len(t.fixes))
	copy(out, t.fixes)
	return out
}

// Positions returns the coordinates of all fixes.
func (t *Trajectory) Positions() []domain.GeoPoint {
	out := make([]domain.GeoPoint, len(t.fixes))
	for i, f := range t.fixes {
		out[i] = f.Position
	}
	return out
}

// StartTime returns the timestamp of the first fix.
func (t *Trajectory) StartTime() (int64, error) {
	if err := t.requireTime(); err != nil {
		return 0, err
	}
	return t.fixes[0].Time, nil
}

// EndTime returns the timestamp of the last fix.
func (t *Trajectory) EndTime() (int64, error) {
	if err := t.requireTime(); err != nil {
		return 0, err
	}
	return t.fixes[len(t.fixes)-1].Time, nil
}

// Duration is the time between the first and last fix.
func (t *Trajectory) Duration() (time.Duration, error) {
	if err := t.requireTime(); err != nil {
		return 0, err
	}
	return time.Duration(t.fixes[len(t.fixes)-1].Time-t.fixes[0].Time) * time.Millisecond, nil
}

// Distance is the length of the route in meters.
func (t *Trajectory) Distance() float64 {
	return geospatial.PathLength(t.Positions())
}

// Bounds is the bounding box of all fixes.
func (t *Trajectory) Bounds() domain.Bounds {
	return domain.BoundsOf(t.Positions()...)
}

// PositionAt returns the position at instant ms. Between two fixes the
// latitude and longitude are interpolated linearly in time. Outside the
// recorded span the policy applies; ok is false when no position is given.
func (t *Trajectory) PositionAt(ms int64, policy BoundaryPolicy) (fix Fix, ok bool, err error) {
	if err := t.requireTime(); err != nil {
		return Fix{}, false, err
	}
	n := len(t.fixes)
	// First fix strictly after ms.
	i := sort.Search(n, func(i int) bool { return t.fixes[i].Time > ms })

	switch {
	case i == 0:
		if policy == Exclude {
			return Fix{}, false, nil
		}
		return t.fixes[0], true, nil
	case i == n:
		last := t.fixes[n-1]
		if last.Time != ms && policy == Exclude {
			return Fix{}, false, nil
		}
		return last, true, nil
	}

	prev, next := t.fixes[i-1], t.fixes[i]
	if prev.Time == ms {
		return prev, true, nil
	}
	r := float64(ms-prev.Time) / float64(next.Time-prev.Time)
	return Fix{
		Time:    ms,
		HasTime: true,
		Position: domain.GeoPoint{
			Lat: prev.Position.Lat + (next.Position.Lat-prev.Position.Lat)*r,
			Lon: prev.Position.Lon + (next.Position.Lon-prev.Position.Lon)*r,
		},
	}, true, nil
}

// HasFixInInterval reports whether a stored fix lies in [start, end].
func (t *Trajectory) HasFixInInterval(start, end int64) (bool, error) {
	if err := t.requireTime(); err != nil {
		return false, err
	}
	if start > end {
		return false, nil
	}
	lo := t.firstAtOrAfter(start)
	return lo < len(t.fixes) && t.fixes[lo].Time <= end, nil
}

// ExtractInterval returns the stored fixes with timestamps in [start, end].
// No fixes are interpolated at the boundaries.
func (t *Trajectory) ExtractInterval(start, end int64) (*Trajectory, error) {
	if err := t.requireTime(); err != nil {
		return nil, err
	}
	if start > end {
		return &Trajectory{}, nil
	}
	lo := t.firstAtOrAfter(start)
	hi := sort.Search(len(t.fixes), func(i int) bool { return t.fixes[i].Time > end })
	return t.slice(lo, hi), nil
}

// CropByProgress keeps the fixes between lo and hi percent of the fix
// count, rounding the start down and the end up.
func (t *Trajectory) CropByProgress(lo, hi float64) (*Trajectory, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || lo < 0 || hi > 100 || lo > hi {
		return nil, fmt.Errorf("%w: crop range [%v, %v]", domain.ErrOutOfRange, lo, hi)
	}
	n := float64(len(t.fixes))
	minIdx := int(math.Floor(lo * n / 100))
	maxIdx := int(math.Ceil(hi * n / 100))
	return t.slice(minIdx, maxIdx), nil
}

func (t *Trajectory) slice(lo, hi int) *Trajectory {
	out := make([]Fix, hi-lo)
	copy(out, t.fixes[lo:hi])
	return &Trajectory{fixes: out, timed: t.timed && len(out) > 0}
}

func (t *Trajectory) firstAtOrAfter(ms int64) int {
	return sort.Search(len(t.fixes), func(i int) bool { return t.fixes[i].Time >= ms })
}

func (t *Trajectory) requireTime() error {
	if len(t.fixes) == 0 {
		return fmt.Errorf("%w: no fixes", domain.ErrEmptyTrajectory)
	}
	if !t.timed {
		return fmt.Errorf("%w: fixes have no timestamps", domain.ErrEmptyTrajectory)
	}
	return nil
}
