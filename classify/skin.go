//go:build !gocv

package classify

import (
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// skinShare 返回落在肤色 HSV 范围内的像素占比，忽略 alpha，按不透明 8 位 RGB 读取
func skinShare(img image.Image) (float64, error) {
	b := img.Bounds()
	total := b.Dx() * b.Dy()

	skin := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			h, s, v := hsv8(img.At(x, y))
			if inSkinRange(h, s, v) {
				skin++
			}
		}
	}

	return float64(skin) / float64(total), nil
}

type rgbaColor interface {
	RGBA() (r, g, b, a uint32)
}

// hsv8 转为 OpenCV 的 8 位 HSV：色相减半到 0..179，饱和度和明度缩放到 0..255
func hsv8(c rgbaColor) (h, s, v uint8) {
	r, g, b := straightRGB(c)
	col := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	hue, sat, val := col.Hsv()

	hh := math.Round(hue / 2)
	if hh >= 180 {
		hh -= 180
	}
	return uint8(hh), uint8(math.Round(sat * 255)), uint8(math.Round(val * 255))
}

// straightRGB 返回非预乘的 8 位通道，半透明像素保持三通道解码时的颜色
func straightRGB(c rgbaColor) (r, g, b uint8) {
	r32, g32, b32, a32 := c.RGBA()
	if a32 == 0 {
		return 0, 0, 0
	}
	if a32 != 0xffff {
		r32 = r32 * 0xffff / a32
		g32 = g32 * 0xffff / a32
		b32 = b32 * 0xffff / a32
	}
	return uint8(r32 >> 8), uint8(g32 >> 8), uint8(b32 >> 8)
}
