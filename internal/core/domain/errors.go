package domain

import "errors"

var (
	// ErrDegenerateCalibration is returned when reference points are collinear
	// or otherwise leave the solver's linear system singular.
	ErrDegenerateCalibration = errors.New("degenerate calibration")

	// ErrOutOfRange is returned by index access beyond a trajectory's bounds.
	ErrOutOfRange = errors.New("index out of range")

	// ErrEmptyTrajectory is returned when a time-based query runs on a
	// trajectory with no fixes, or with fixes that lack timestamps.
	ErrEmptyTrajectory = errors.New("empty trajectory")

	// ErrInvalidCoordinate is returned for |lat| >= 90, lon outside
	// (-180, 180] or non-finite values.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	ErrInvalidCalibrationString = errors.New("invalid calibration string")
	ErrUnorderedFixes           = errors.New("fix timestamps are not in chronological order")
	ErrNotFound                 = errors.New("not found")
	ErrInvalidInput             = errors.New("invalid input")
)
