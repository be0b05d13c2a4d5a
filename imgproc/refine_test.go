package imgproc

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/bgremove/model"
)

// cutout 模拟模型输出：左半边前景（alpha 255），右半边背景（alpha 0），RGB 为随机纹理
func cutout(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := uint8(0)
			if x < w/2 {
				a = 255
			}
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 13), B: uint8(x ^ y), A: a})
		}
	}
	return img
}

func TestRefine_KeepsColorChannels(t *testing.T) {
	t.Parallel()

	for _, q := range []model.Quality{model.QualityStandard, model.QualityHigh} {
		src := cutout(24, 16)
		got := Refine(src, q)
		require.NotNil(t, got)
		require.Equal(t, src.Bounds(), got.Bounds())

		for i := 0; i < len(src.Pix); i += 4 {
			require.Equal(t, src.Pix[i:i+3], got.Pix[i:i+3], "quality %s pixel %d", q, i/4)
		}
	}
}

func TestRefine_DoesNotModifyInput(t *testing.T) {
	t.Parallel()

	src := cutout(10, 10)
	before := append([]uint8(nil), src.Pix...)
	_ = Refine(src, model.QualityHigh)
	assert.Equal(t, before, src.Pix)
}

func TestRefine_StandardSoftensEdge(t *testing.T) {
	t.Parallel()

	got := Refine(cutout(20, 6), model.QualityStandard)

	// 边缘两侧的像素被轻微模糊
	assert.Less(t, got.NRGBAAt(9, 3).A, uint8(255))
	assert.Greater(t, got.NRGBAAt(10, 3).A, uint8(0))
	// 远离边缘的像素不变
	assert.Equal(t, uint8(255), got.NRGBAAt(2, 3).A)
	assert.Equal(t, uint8(0), got.NRGBAAt(17, 3).A)
}

func TestRefine_UniformAlphaIsStable(t *testing.T) {
	t.Parallel()

	for _, q := range []model.Quality{model.QualityStandard, model.QualityHigh} {
		for _, a := range []uint8{0, 255} {
			src := image.NewNRGBA(image.Rect(0, 0, 9, 7))
			for i := 0; i < len(src.Pix); i += 4 {
				src.Pix[i], src.Pix[i+3] = 77, a
			}

			got := Refine(src, q)
			for i := 3; i < len(got.Pix); i += 4 {
				require.Equal(t, a, got.Pix[i], "quality %s alpha %d", q, a)
			}
		}
	}
}

func TestRefine_HighFillsPinhole(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(0, 0, 15, 15))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i+3] = 255
	}
	src.SetNRGBA(7, 7, color.NRGBA{})

	got := Refine(src, model.QualityHigh)
	assert.Greater(t, got.NRGBAAt(7, 7).A, uint8(200))
}

func TestRefine_Failures(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Refine(nil, model.QualityHigh))

	empty := image.NewNRGBA(image.Rect(0, 0, 0, 0))
	got := Refine(empty, model.QualityStandard)
	assert.Same(t, empty, got)
}

func TestRefine_OffsetBounds(t *testing.T) {
	t.Parallel()

	src := cutout(12, 12).SubImage(image.Rect(2, 2, 10, 10))
	got := Refine(src, model.QualityHigh)
	assert.Equal(t, image.Rect(0, 0, 8, 8), got.Bounds())

	r, g, b, _ := src.At(2, 2).RGBA()
	c := got.NRGBAAt(0, 0)
	assert.Equal(t, []uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}, []uint8{c.R, c.G, c.B})
}

func TestSharpen_KeepsBorder(t *testing.T) {
	t.Parallel()

	// 水平渐变：卷积在最右列会把值推高
	alpha := image.NewGray(image.Rect(0, 0, 6, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 6; x++ {
			alpha.SetGray(x, y, color.Gray{Y: uint8(x * 40)})
		}
	}

	got := sharpen(alpha, sharpnessFactor)
	require.Equal(t, alpha.Bounds(), got.Bounds())
	for y := 0; y < 5; y++ {
		for x := 0; x < 6; x++ {
			if x == 0 || x == 5 || y == 0 || y == 4 {
				assert.Equal(t, alpha.GrayAt(x, y), got.GrayAt(x, y), "border (%d,%d)", x, y)
			}
		}
	}
	// 线性渐变的内部像素经过对称核后不变
	assert.Equal(t, uint8(80), got.GrayAt(2, 2).Y)
}

func TestCopyBorder_Empty(t *testing.T) {
	t.Parallel()

	empty := image.NewGray(image.Rect(0, 0, 0, 3))
	assert.NotPanics(t, func() { copyBorder(empty, empty) })
}
