package trajectory

import (
	"math"
	"time"

	"github.com/samirrijal/mapdump/internal/core/domain"
)

// Stats summarizes the trajectory. fallback is used as the start time when
// the fixes carry no timestamps, typically the route creation time.
func (t *Trajectory) Stats(fallback time.Time) domain.RouteStats {
	s := domain.RouteStats{
		StartTime: fallback.UTC(),
		Distance:  int64(math.Round(t.Distance())),
		Bounds:    t.Bounds(),
	}
	if t.timed {
		first, last := t.fixes[0].Time, t.fixes[len(t.fixes)-1].Time
		s.StartTime = time.UnixMilli(first).UTC()
		d := int64(math.Round(float64(last-first) / 1000))
		s.Duration = &d
	}
	return s
}
