package util

import "image"

// FirstChannel 取出 NRGBA 的第一个通道，用于灰度图经过 imaging 处理后转回 *image.Gray
func FirstChannel(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		for x := range b.Dx() {
			gray.Pix[y*gray.Stride+x] = img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)]
		}
	}
	return gray
}
