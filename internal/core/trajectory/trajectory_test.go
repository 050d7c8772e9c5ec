package trajectory_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/core/trajectory"
)

func mustNew(t *testing.T, fixes ...trajectory.Fix) *trajectory.Trajectory {
	t.Helper()
	tr, err := trajectory.New(fixes)
	require.NoError(t, err)
	return tr
}

func fourFixes(t *testing.T) *trajectory.Trajectory {
	return mustNew(t,
		trajectory.TimedFix(0, 10, 20),
		trajectory.TimedFix(1000, 10, 21),
		trajectory.TimedFix(2000, 11, 21),
		trajectory.TimedFix(3000, 11, 22),
	)
}

func TestPositionAt_Interpolates(t *testing.T) {
	tr := mustNew(t,
		trajectory.TimedFix(0, 10, 20),
		trajectory.TimedFix(1000, 10, 21),
	)

	f, ok, err := tr.PositionAt(500, trajectory.Clamp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(500), f.Time)
	assert.InDelta(t, 10.0, f.Position.Lat, 1e-12)
	assert.InDelta(t, 20.5, f.Position.Lon, 1e-12)
}

func TestPositionAt_ExactFix(t *testing.T) {
	tr := fourFixes(t)

	f, ok, err := tr.PositionAt(2000, trajectory.Exclude)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.GeoPoint{Lat: 11, Lon: 21}, f.Position)

	f, ok, err = tr.PositionAt(3000, trajectory.Exclude)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.GeoPoint{Lat: 11, Lon: 22}, f.Position)
}

func TestPositionAt_Boundaries(t *testing.T) {
	tr := fourFixes(t)

	f, ok, err := tr.PositionAt(-500, trajectory.Clamp)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.GeoPoint{Lat: 10, Lon: 20}, f.Position)

	f, ok, err = tr.PositionAt(99999, trajectory.Clamp)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.GeoPoint{Lat: 11, Lon: 22}, f.Position)

	_, ok, err = tr.PositionAt(-1, trajectory.Exclude)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = tr.PositionAt(3001, trajectory.Exclude)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPositionAt_DuplicateTimestamps(t *testing.T) {
	tr := mustNew(t,
		trajectory.TimedFix(0, 1, 1),
		trajectory.TimedFix(1000, 2, 2),
		trajectory.TimedFix(1000, 3, 3),
		trajectory.TimedFix(2000, 5, 3),
	)

	f, _, err := tr.PositionAt(1000, trajectory.Clamp)
	require.NoError(t, err)
	assert.Equal(t, domain.GeoPoint{Lat: 3, Lon: 3}, f.Position)

	f, _, err = tr.PositionAt(1500, trajectory.Clamp)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, f.Position.Lat, 1e-12)
}

func TestExtractInterval(t *testing.T) {
	tr := fourFixes(t)

	sub, err := tr.ExtractInterval(1000, 2500)
	require.NoError(t, err)
	require.Equal(t, 2, sub.Len())
	first, _ := sub.At(0)
	second, _ := sub.At(1)
	assert.Equal(t, int64(1000), first.Time)
	assert.Equal(t, int64(2000), second.Time)

	// The source is untouched.
	assert.Equal(t, 4, tr.Len())

	all, err := tr.ExtractInterval(0, 3000)
	require.NoError(t, err)
	assert.Equal(t, 4, all.Len())

	none, err := tr.ExtractInterval(1100, 1900)
	require.NoError(t, err)
	assert.Zero(t, none.Len())
	_, err = none.StartTime()
	assert.ErrorIs(t, err, domain.ErrEmptyTrajectory)

	reversed, err := tr.ExtractInterval(2000, 1000)
	require.NoError(t, err)
	assert.Zero(t, reversed.Len())
}

func TestHasFixInInterval(t *testing.T) {
	tr := fourFixes(t)

	tests := []struct {
		start, end int64
		want       bool
	}{
		{1500, 1800, false},
		{900, 1100, true},
		{1000, 1000, true},
		{3000, 4000, true},
		{3001, 4000, false},
		{-100, -1, false},
		{2000, 1000, false},
	}
	for _, tc := range tests {
		got, err := tr.HasFixInInterval(tc.start, tc.end)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "[%d, %d]", tc.start, tc.end)
	}
}

func TestAt_OutOfRange(t *testing.T) {
	tr := fourFixes(t)
	_, err := tr.At(tr.Len())
	assert.ErrorIs(t, err, domain.ErrOutOfRange)
	_, err = tr.At(-1)
	assert.ErrorIs(t, err, domain.ErrOutOfRange)

	empty := mustNew(t)
	_, err = empty.At(0)
	assert.ErrorIs(t, err, domain.ErrOutOfRange)
}

func TestTimeQueries_RequireTimestamps(t *testing.T) {
	empty := mustNew(t)
	untimed := mustNew(t,
		trajectory.TimedFix(0, 1, 1),
		trajectory.UntimedFix(2, 2),
	)

	for name, tr := range map[string]*trajectory.Trajectory{"empty": empty, "untimed": untimed} {
		t.Run(name, func(t *testing.T) {
			assert.False(t, tr.Timed())
			_, _, err := tr.PositionAt(0, trajectory.Clamp)
			assert.ErrorIs(t, err, domain.ErrEmptyTrajectory)
			_, err = tr.HasFixInInterval(0, 1)
			assert.ErrorIs(t, err, domain.ErrEmptyTrajectory)
			_, err = tr.ExtractInterval(0, 1)
			assert.ErrorIs(t, err, domain.ErrEmptyTrajectory)
			_, err = tr.Duration()
			assert.ErrorIs(t, err, domain.ErrEmptyTrajectory)
		})
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := trajectory.New([]trajectory.Fix{
		trajectory.TimedFix(1000, 1, 1),
		trajectory.TimedFix(500, 1, 1),
	})
	assert.ErrorIs(t, err, domain.ErrUnorderedFixes)

	_, err = trajectory.New([]trajectory.Fix{trajectory.TimedFix(0, 95, 1)})
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinate)

	// Order is not checked when time is unavailable.
	_, err = trajectory.New([]trajectory.Fix{
		trajectory.TimedFix(1000, 1, 1),
		trajectory.UntimedFix(1, 1),
		trajectory.TimedFix(500, 1, 1),
	})
	assert.NoError(t, err)
}

func TestNew_CopiesInput(t *testing.T) {
	fixes := []trajectory.Fix{trajectory.TimedFix(0, 1, 1)}
	tr := mustNew(t, fixes...)
	fixes[0].Position.Lat = 50

	f, err := tr.At(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, f.Position.Lat)
}

func TestCropByProgress(t *testing.T) {
	fixes := make([]trajectory.Fix, 10)
	for i := range fixes {
		fixes[i] = trajectory.TimedFix(int64(i)*1000, float64(i), 0)
	}
	tr := mustNew(t, fixes...)

	crop, err := tr.CropByProgress(15, 42)
	require.NoError(t, err)
	// floor(1.5) = 1 through ceil(4.2) = 5, exclusive.
	require.Equal(t, 4, crop.Len())
	first, _ := crop.At(0)
	assert.Equal(t, int64(1000), first.Time)

	whole, err := tr.CropByProgress(0, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, whole.Len())

	_, err = tr.CropByProgress(50, 10)
	assert.ErrorIs(t, err, domain.ErrOutOfRange)
	_, err = tr.CropByProgress(-1, 10)
	assert.ErrorIs(t, err, domain.ErrOutOfRange)
}

func TestStats(t *testing.T) {
	tr := mustNew(t,
		trajectory.TimedFix(1_600_000_000_000, 0, 0),
		trajectory.TimedFix(1_600_000_060_000, 0, 1),
	)
	d, err := tr.Duration()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
	assert.InDelta(t, 111319.49, tr.Distance(), 0.5)
	assert.Equal(t, domain.Bounds{MinLat: 0, MinLon: 0, MaxLat: 0, MaxLon: 1}, tr.Bounds())
}

func TestRecords_RoundTrip(t *testing.T) {
	ms := int64(1_600_000_000_123)
	in := []trajectory.Record{
		{Time: &ms, LatLng: [2]float64{45.1, 5.9}},
	}
	tr, err := trajectory.FromRecords(in)
	require.NoError(t, err)
	assert.Equal(t, in, tr.Records())

	points := tr.Export()
	require.Len(t, points, 1)
	require.NotNil(t, points[0].Time)
	assert.InDelta(t, 1_600_000_000.123, *points[0].Time, 1e-6)
	assert.Equal(t, [2]float64{45.1, 5.9}, points[0].LatLon)

	back, err := trajectory.FromRoutePoints(points)
	require.NoError(t, err)
	f, _ := back.At(0)
	assert.Equal(t, ms, f.Time)
}

func TestExport_UntimedIsNull(t *testing.T) {
	tr, err := trajectory.FromRecords([]trajectory.Record{{LatLng: [2]float64{1, 2}}})
	require.NoError(t, err)
	assert.Nil(t, tr.Export()[0].Time)
}

func TestGPX_RoundTrip(t *testing.T) {
	tr := fourFixes(t)

	data, err := tr.GPX("Morning run")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "Mapdump.com"))

	back, err := trajectory.ParseGPX(data)
	require.NoError(t, err)
	require.Equal(t, tr.Len(), back.Len())
	for i := 0; i < tr.Len(); i++ {
		want, _ := tr.At(i)
		got, _ := back.At(i)
		assert.Equal(t, want.Time, got.Time)
		assert.InDelta(t, want.Position.Lat, got.Position.Lat, 1e-9)
		assert.InDelta(t, want.Position.Lon, got.Position.Lon, 1e-9)
	}
}

func TestGeoJSON(t *testing.T) {
	tr := fourFixes(t)
	corners := domain.Corners{
		TopLeft:     domain.GeoPoint{Lat: 12, Lon: 19},
		TopRight:    domain.GeoPoint{Lat: 12, Lon: 23},
		BottomRight: domain.GeoPoint{Lat: 9, Lon: 23},
		BottomLeft:  domain.GeoPoint{Lat: 9, Lon: 19},
	}

	data, err := tr.GeoJSON("Morning run", &corners)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `"LineString"`)
	assert.Contains(t, s, `"Polygon"`)
	assert.Contains(t, s, `"Morning run"`)
}

func TestStats_Summary(t *testing.T) {
	tr := mustNew(t,
		trajectory.TimedFix(1_600_000_000_000, 0, 0),
		trajectory.TimedFix(1_600_000_090_400, 0, 1),
	)
	s := tr.Stats(time.Unix(0, 0))
	assert.Equal(t, time.UnixMilli(1_600_000_000_000).UTC(), s.StartTime)
	require.NotNil(t, s.Duration)
	assert.Equal(t, int64(90), *s.Duration)
	assert.Equal(t, int64(111319), s.Distance)

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	untimed := mustNew(t, trajectory.UntimedFix(0, 0), trajectory.UntimedFix(0, 1))
	s = untimed.Stats(created)
	assert.Equal(t, created, s.StartTime)
	assert.Nil(t, s.Duration)
}
