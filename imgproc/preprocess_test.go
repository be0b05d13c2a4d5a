package imgproc

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/bgremove/model"
)

func opaque(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 90, G: 140, B: 30, A: 255}), image.Point{}, draw.Src)
	return img
}

func assertOpaque(t *testing.T, img *image.RGBA) {
	t.Helper()
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 {
			t.Fatalf("pixel %d has alpha %d", i/4, img.Pix[i])
		}
	}
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 0})
	src.SetNRGBA(1, 0, color.NRGBA{A: 128})
	src.SetNRGBA(2, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	got := Flatten(src)
	assertOpaque(t, got)

	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, got.RGBAAt(0, 0))
	half := got.RGBAAt(1, 0)
	assert.InDelta(t, 127, int(half.R), 1)
	assert.Equal(t, half.R, half.G)
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, got.RGBAAt(2, 0))
}

func TestFlatten_OpaqueSources(t *testing.T) {
	t.Parallel()

	gray := image.NewGray(image.Rect(5, 5, 9, 8))
	for i := range gray.Pix {
		gray.Pix[i] = uint8(i * 10)
	}

	got := Flatten(gray)
	assertOpaque(t, got)
	assert.Equal(t, image.Rect(0, 0, 4, 3), got.Bounds())
	assert.Equal(t, uint8(10), got.RGBAAt(1, 0).R)

	ycc := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420)
	assertOpaque(t, Flatten(ycc))
}

func TestResize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		w, h         int
		quality      model.Quality
		wantW, wantH int
	}{
		{"landscape standard", 2000, 1000, model.QualityStandard, 1200, 600},
		{"landscape high under ceiling", 2000, 1000, model.QualityHigh, 2000, 1000},
		{"landscape high", 3000, 1000, model.QualityHigh, 2400, 800},
		{"portrait standard", 1000, 3000, model.QualityStandard, 400, 1200},
		{"rounded short side", 1999, 1001, model.QualityStandard, 1200, 601},
		{"at ceiling", 1200, 700, model.QualityStandard, 1200, 700},
		{"small", 600, 900, model.QualityHigh, 600, 900},
		{"sliver", 5000, 2, model.QualityStandard, 1200, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Resize(opaque(tt.w, tt.h), tt.quality)
			assert.Equal(t, tt.wantW, got.Bounds().Dx())
			assert.Equal(t, tt.wantH, got.Bounds().Dy())
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	for _, q := range []model.Quality{model.QualityStandard, model.QualityHigh} {
		once := Normalize(opaque(2600, 1300), q)
		twice := Normalize(once, q)

		assert.Equal(t, once.Bounds(), twice.Bounds())
		assert.LessOrEqual(t, once.Bounds().Dx(), 2600)
		assert.LessOrEqual(t, once.Bounds().Dy(), 1300)
		assertOpaque(t, once)
	}
}

func TestFitWithin_AspectRatio(t *testing.T) {
	t.Parallel()

	for _, size := range [][2]int{{1601, 997}, {4032, 3024}, {1300, 7}, {733, 2999}, {2401, 2401}} {
		w, h := size[0], size[1]
		for _, maxSide := range []int{StandardMaxSide, HighMaxSide} {
			nw, nh := fitWithin(w, h, maxSide)
			require.LessOrEqual(t, max(nw, nh), maxSide)
			require.LessOrEqual(t, nw, w)
			require.LessOrEqual(t, nh, h)

			// 短边与按比例计算的理想值相差不超过 1 像素
			if w >= h {
				assert.InDelta(t, float64(h)*float64(nw)/float64(w), float64(nh), 1)
			} else {
				assert.InDelta(t, float64(w)*float64(nh)/float64(h), float64(nw), 1)
			}
		}
	}
}

func TestMaxSide(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1200, MaxSide(model.QualityStandard))
	assert.Equal(t, 2400, MaxSide(model.QualityHigh))
}
