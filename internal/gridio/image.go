package gridio

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/gift"
	"golang.org/x/image/tiff"

	"github.com/MeKo-Tech/reliefkit/internal/grid"
)

// Format is an output file format.
type Format string

const (
	FormatASCII Format = "asc"
	FormatPNG   Format = "png"
	FormatTIFF  Format = "tif"
)

// FormatFromPath picks the format from the file extension. A trailing ".gz"
// is allowed for ASCII grids.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(path, ".gz")))
	switch ext {
	case ".asc":
		return FormatASCII, nil
	case ".png":
		return FormatPNG, nil
	case ".tif", ".tiff":
		return FormatTIFF, nil
	}
	return "", grid.InvalidParam("path", path, "has no supported extension (.asc, .png, .tif)")
}

// ImageOptions control grayscale rendering.
type ImageOptions struct {
	// Min and Max fix the value range mapped to black and white. When both are
	// zero the grid's own range is used.
	Min, Max float64
	// Width and Height resample the image for previews. Zero keeps the grid size;
	// one zero dimension preserves the aspect ratio.
	Width, Height int
}

// ImageOption configures ImageOptions.
type ImageOption func(*ImageOptions)

// WithRange fixes the value range instead of stretching to the data.
func WithRange(minVal, maxVal float64) ImageOption {
	return func(o *ImageOptions) { o.Min, o.Max = minVal, maxVal }
}

// WithSize resamples the output image.
func WithSize(width, height int) ImageOption {
	return func(o *ImageOptions) { o.Width, o.Height = width, height }
}

// Image renders g as 16-bit grayscale with linear min/max scaling.
// NoData cells are black.
func Image(g *grid.Grid, opts ...ImageOption) (*image.Gray16, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	var o ImageOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.Width < 0 || o.Height < 0 {
		return nil, grid.InvalidParam("size", fmt.Sprintf("%dx%d", o.Width, o.Height), "must not be negative")
	}

	lo, hi := o.Min, o.Max
	if lo == 0 && hi == 0 {
		s := g.Stats()
		lo, hi = s.Min, s.Max
	}
	if hi < lo {
		return nil, grid.InvalidParam("range", fmt.Sprintf("[%v, %v]", lo, hi), "max must not be below min")
	}
	span := hi - lo

	img := image.NewGray16(image.Rect(0, 0, g.Width, g.Height))
	for r := 0; r < g.Height; r++ {
		for c, v := range g.Row(r) {
			var y uint16
			if !math.IsNaN(v) && span > 0 {
				t := math.Max(0, math.Min(1, (v-lo)/span))
				y = uint16(math.Round(t * math.MaxUint16))
			}
			img.SetGray16(c, r, color.Gray16{Y: y})
		}
	}

	if o.Width == 0 && o.Height == 0 {
		return img, nil
	}
	f := gift.New(gift.Resize(o.Width, o.Height, gift.LinearResampling))
	dst := image.NewGray16(f.Bounds(img.Bounds()))
	f.Draw(dst, img)
	return dst, nil
}

// EncodePNG writes g as a 16-bit grayscale PNG.
func EncodePNG(w io.Writer, g *grid.Grid, opts ...ImageOption) error {
	img, err := Image(g, opts...)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// EncodeTIFF writes g as a deflate-compressed 16-bit grayscale TIFF.
func EncodeTIFF(w io.Writer, g *grid.Grid, opts ...ImageOption) error {
	img, err := Image(g, opts...)
	if err != nil {
		return err
	}
	if err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		return fmt.Errorf("failed to encode tiff: %w", err)
	}
	return nil
}

// WriteFile writes g to path in the format implied by its extension.
// Image options are ignored for ASCII output.
func WriteFile(path string, g *grid.Grid, opts ...ImageOption) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if format == FormatASCII {
		return WriteASCIIFile(path, g)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if format == FormatPNG {
		err = EncodePNG(f, g, opts...)
	} else {
		err = EncodeTIFF(f, g, opts...)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
