package util

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstChannel(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 40})
	src.SetNRGBA(2, 1, color.NRGBA{R: 250, G: 1, B: 1, A: 1})

	gray := FirstChannel(src)
	assert.Equal(t, image.Rect(0, 0, 3, 2), gray.Bounds())
	assert.Equal(t, uint8(10), gray.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(250), gray.GrayAt(2, 1).Y)
	assert.Equal(t, uint8(0), gray.GrayAt(1, 0).Y)

	// 非零原点的子图
	sub := src.SubImage(image.Rect(1, 1, 3, 2)).(*image.NRGBA)
	gray = FirstChannel(sub)
	assert.Equal(t, image.Rect(0, 0, 2, 1), gray.Bounds())
	assert.Equal(t, []uint8{0, 250}, gray.Pix)
}
