//go:build !gocv

package classify

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chaos-io/bgremove/model"
)

func TestClassify_IgnoresAlpha(t *testing.T) {
	t.Parallel()

	img := synthetic(60, 90, 0.3)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0x40
	}
	assert.Equal(t, model.LabelHuman, Classify(img))
}

func TestHSV8(t *testing.T) {
	t.Parallel()

	tests := []struct {
		c       color.Color
		h, s, v uint8
	}{
		{color.NRGBA{R: 255, A: 255}, 0, 255, 255},
		{color.NRGBA{G: 255, A: 255}, 60, 255, 255},
		{color.NRGBA{B: 255, A: 255}, 120, 255, 255},
		{color.NRGBA{R: 128, G: 128, B: 128, A: 255}, 0, 0, 128},
		{skinTone, 17, 135, 224},
	}
	for _, tt := range tests {
		h, s, v := hsv8(tt.c)
		assert.Equal(t, []uint8{tt.h, tt.s, tt.v}, []uint8{h, s, v}, "%v", tt.c)
	}
}
