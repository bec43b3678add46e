// Package ocr rasterizes document regions and recognizes their text with
// tesseract when no embedded text layer is available.
package ocr

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// PreprocessOptions selects which cleanup steps run before recognition.
type PreprocessOptions struct {
	AdaptiveThreshold   bool
	NoiseReduction      bool
	ContrastEnhancement bool
	SkewCorrection      bool
}

// DefaultPreprocessOptions enables everything except skew correction, which
// distorts clean scans more often than it helps.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		AdaptiveThreshold:   true,
		NoiseReduction:      true,
		ContrastEnhancement: true,
	}
}

// Preprocess applies the enabled cleanup steps in a fixed order: grayscale,
// contrast, noise reduction, skew correction, adaptive threshold.
func Preprocess(img image.Image, opts PreprocessOptions) image.Image {
	gray := imaging.Grayscale(img)
	if opts.ContrastEnhancement {
		gray = imaging.AdjustContrast(gray, 25)
	}
	if opts.NoiseReduction {
		gray = imaging.Blur(gray, 0.6)
	}
	if opts.SkewCorrection {
		if angle := estimateSkew(gray); angle != 0 {
			gray = imaging.Rotate(gray, angle, color.White)
		}
	}
	if opts.AdaptiveThreshold {
		return adaptiveThreshold(gray, 15, 8)
	}
	return gray
}

// adaptiveThreshold binarizes against a local mean computed over a
// (2*radius+1)^2 window via an integral image. bias is subtracted from the
// mean so flat background stays white.
func adaptiveThreshold(src *image.NRGBA, radius, bias int) *image.NRGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return src
	}

	integral := make([]int64, (w+1)*(h+1))
	stride := w + 1
	for y := 0; y < h; y++ {
		var rowSum int64
		for x := 0; x < w; x++ {
			rowSum += int64(src.Pix[y*src.Stride+x*4])
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + rowSum
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		y0 := max(0, y-radius)
		y1 := min(h-1, y+radius)
		for x := 0; x < w; x++ {
			x0 := max(0, x-radius)
			x1 := min(w-1, x+radius)
			area := int64((x1 - x0 + 1) * (y1 - y0 + 1))
			sum := integral[(y1+1)*stride+x1+1] - integral[y0*stride+x1+1] -
				integral[(y1+1)*stride+x0] + integral[y0*stride+x0]
			mean := sum / area

			v := uint8(255)
			if int64(src.Pix[y*src.Stride+x*4]) < mean-int64(bias) {
				v = 0
			}
			i := y*dst.Stride + x*4
			dst.Pix[i] = v
			dst.Pix[i+1] = v
			dst.Pix[i+2] = v
			dst.Pix[i+3] = 255
		}
	}
	return dst
}

// estimateSkew searches small rotation angles for the one that maximizes the
// variance of horizontal ink projections. Text lines aligned with the raster
// produce sharp projection peaks.
func estimateSkew(src *image.NRGBA) float64 {
	const (
		maxAngle = 3.0
		step     = 0.5
	)
	best, bestScore := 0.0, projectionVariance(src, 0)
	for angle := -maxAngle; angle <= maxAngle; angle += step {
		if angle == 0 {
			continue
		}
		if score := projectionVariance(src, angle); score > bestScore {
			best, bestScore = angle, score
		}
	}
	return best
}

func projectionVariance(src *image.NRGBA, angle float64) float64 {
	img := src
	if angle != 0 {
		img = imaging.Rotate(src, angle, color.White)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if h == 0 {
		return 0
	}

	rows := make([]float64, h)
	var total float64
	for y := 0; y < h; y++ {
		var ink float64
		for x := 0; x < w; x++ {
			if img.Pix[y*img.Stride+x*4] < 128 {
				ink++
			}
		}
		rows[y] = ink
		total += ink
	}
	mean := total / float64(h)

	var variance float64
	for _, v := range rows {
		d := v - mean
		variance += d * d
	}
	return variance / float64(h)
}

// scaleRect converts point coordinates to pixel coordinates at dpi.
func scaleRect(x0, y0, x1, y1 float64, dpi int) image.Rectangle {
	s := float64(dpi) / 72.0
	return image.Rect(
		int(math.Floor(x0*s)), int(math.Floor(y0*s)),
		int(math.Ceil(x1*s)), int(math.Ceil(y1*s)),
	)
}
