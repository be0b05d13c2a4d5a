package imgproc

import (
	"image"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
)

// hasUsefulAlpha 检查 alpha 通道是否真的包含透明信息
// 只要存在非 255（非完全不透明）的像素，就需要铺白底
func hasUsefulAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// fitWithin 计算最长边不超过 maxSize 的尺寸，短边四舍五入，最小为 1
func fitWithin(w, h, maxSize int) (int, int) {
	longest := max(w, h)
	if longest <= maxSize {
		return w, h
	}

	scale := float64(maxSize) / float64(longest)
	if w >= h {
		return maxSize, max(1, int(math.Round(float64(h)*scale)))
	}
	return max(1, int(math.Round(float64(w)*scale))), maxSize
}

// resizeWithinMax 缩放（最长边 <= maxSize），Lanczos3 重采样
func resizeWithinMax(img *image.RGBA, maxSize int) *image.RGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	newW, newH := fitWithin(w, h, maxSize)
	if newW == w && newH == h {
		return img
	}

	resized := resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)
	return toRGBA(resized)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// toNRGBA 转为从 (0,0) 开始的 NRGBA；NRGBA 子图按行拷贝，保留透明像素的 RGB
func toNRGBA(img image.Image) *image.NRGBA {
	nrgba, ok := img.(*image.NRGBA)
	if ok && nrgba.Bounds().Min == (image.Point{}) {
		return nrgba
	}

	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if ok {
		for y := 0; y < b.Dy(); y++ {
			off := nrgba.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], nrgba.Pix[off:off+b.Dx()*4])
		}
		return dst
	}
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
