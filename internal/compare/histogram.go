package compare

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"lapsecam/internal/frame"
	"lapsecam/internal/services"
)

const histogramBins = 64

// Histogram scores similarity by intersecting normalized grayscale
// histograms of the decoded frames. Slower than ByteSize but insensitive to
// JPEG encoder size jitter.
type Histogram struct{}

func (Histogram) Name() string { return "histogram" }

func (h Histogram) Compare(ctx context.Context, a, b frame.Frame) (float64, error) {
	histA, err := grayHistogram(ctx, a.Path)
	if err != nil {
		return 0, err
	}
	histB, err := grayHistogram(ctx, b.Path)
	if err != nil {
		return 0, err
	}
	var score float64
	for i := range histA {
		if histA[i] < histB[i] {
			score += histA[i]
		} else {
			score += histB[i]
		}
	}
	return score, nil
}

func grayHistogram(ctx context.Context, path string) ([histogramBins]float64, error) {
	var hist [histogramBins]float64
	if err := ctx.Err(); err != nil {
		return hist, err
	}

	file, err := os.Open(path)
	if err != nil {
		return hist, services.Wrap(services.ErrComparison, "compare", "histogram", fmt.Sprintf("open %s", path), err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return hist, services.Wrap(services.ErrComparison, "compare", "histogram", fmt.Sprintf("decode %s", path), err)
	}

	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return hist, services.Wrap(services.ErrComparison, "compare", "histogram", fmt.Sprintf("empty image %s", path), nil)
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma, 16-bit channels scaled into bins.
			luma := (299*r + 587*g + 114*b) / 1000
			bin := int(luma * histogramBins / 65536)
			if bin >= histogramBins {
				bin = histogramBins - 1
			}
			hist[bin]++
		}
	}
	for i := range hist {
		hist[i] /= float64(total)
	}
	return hist, nil
}
