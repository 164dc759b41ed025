package grid

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when grids that must share dimensions do not.
	ErrShapeMismatch = errors.New("grid shape mismatch")
	// ErrInvalidParameter is returned for out-of-range arguments.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// InvalidParam builds an ErrInvalidParameter error naming the offending parameter.
func InvalidParam(name string, value any, reason string) error {
	return fmt.Errorf("%w: %s=%v %s", ErrInvalidParameter, name, value, reason)
}

// CheckDims validates grid dimensions.
func CheckDims(width, height int) error {
	if width <= 0 {
		return InvalidParam("width", width, "must be positive")
	}
	if height <= 0 {
		return InvalidParam("height", height, "must be positive")
	}
	return nil
}

// CheckSameShape returns ErrShapeMismatch unless a and b have identical dimensions.
func CheckSameShape(a, b *Grid) error {
	if a == nil || b == nil {
		return fmt.Errorf("%w: nil grid", ErrShapeMismatch)
	}
	if a.Width != b.Width || a.Height != b.Height {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch, a.Width, a.Height, b.Width, b.Height)
	}
	return nil
}
