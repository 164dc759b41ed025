// Package shade computes relief shading from elevation grids.
package shade

import (
	"math"

	"github.com/MeKo-Tech/reliefkit/internal/gradient"
	"github.com/MeKo-Tech/reliefkit/internal/grid"
	"github.com/MeKo-Tech/reliefkit/internal/worker"
)

const (
	// DefaultAzimuth is the compass bearing the light comes from, in degrees.
	DefaultAzimuth = 315.0
	// DefaultAltitude is the light elevation above the horizon, in degrees.
	DefaultAltitude = 45.0
)

const degToRad = math.Pi / 180

// Light is a directional light source.
type Light struct {
	Azimuth  float64
	Altitude float64
}

// Option configures Hillshade.
type Option func(*Light)

// WithAzimuth sets the light bearing in degrees.
func WithAzimuth(deg float64) Option { return func(l *Light) { l.Azimuth = deg } }

// WithAltitude sets the light elevation in degrees.
func WithAltitude(deg float64) Option { return func(l *Light) { l.Altitude = deg } }

func (l Light) validate() error {
	if math.IsNaN(l.Azimuth) || math.IsInf(l.Azimuth, 0) {
		return grid.InvalidParam("azimuth", l.Azimuth, "must be finite")
	}
	if l.Altitude < 0 || l.Altitude > 90 || math.IsNaN(l.Altitude) {
		return grid.InvalidParam("altitude", l.Altitude, "must be within [0, 90]")
	}
	return nil
}

// Hillshade returns illumination intensities in [0, 1] for elevation lit by a
// directional source:
//
//	cos(zenith)*cos(slope) + sin(zenith)*sin(slope)*cos(azimuth - aspect)
//
// Self-shadowed cells clamp to 0. Flat cells receive cos(zenith).
// NoData elevation neighbourhoods produce NoData.
func Hillshade(elevation *grid.Grid, opts ...Option) (*grid.Grid, error) {
	l := Light{Azimuth: DefaultAzimuth, Altitude: DefaultAltitude}
	for _, opt := range opts {
		opt(&l)
	}
	if err := l.validate(); err != nil {
		return nil, err
	}

	slope, err := gradient.Slope(elevation)
	if err != nil {
		return nil, err
	}
	aspect, err := gradient.Aspect(elevation)
	if err != nil {
		return nil, err
	}

	zenith := (90 - l.Altitude) * degToRad
	cosZ, sinZ := math.Cos(zenith), math.Sin(zenith)
	az := math.Mod(l.Azimuth, 360) * degToRad

	out := elevation.Like()
	worker.Rows(out.Width, out.Height, func(b worker.Band) {
		for i := b.Start * out.Width; i < b.End*out.Width; i++ {
			s, a := slope.Data[i], aspect.Data[i]
			if grid.IsNoData(s) || grid.IsNoData(a) {
				out.Data[i] = grid.NoData
				continue
			}
			out.Data[i] = Illumination(s*degToRad, a, az, cosZ, sinZ)
		}
	})
	return out, nil
}

// Illumination evaluates the relief-shading formula for one cell.
// slopeRad is in radians, aspectDeg in degrees (FlatAspect allowed), azRad in radians.
func Illumination(slopeRad, aspectDeg, azRad, cosZ, sinZ float64) float64 {
	v := cosZ * math.Cos(slopeRad)
	if aspectDeg != gradient.FlatAspect {
		v += sinZ * math.Sin(slopeRad) * math.Cos(azRad-aspectDeg*degToRad)
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
