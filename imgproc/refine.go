package imgproc

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/chaos-io/bgremove/model"
	"github.com/chaos-io/bgremove/util"
)

const (
	standardBlurSigma = 0.3
	highBlurSigma     = 0.5
	sharpnessFactor   = 1.2
	closeKernel       = 2
	openKernel        = 1
)

// PIL 的 SMOOTH 滤波核，锐化增强以它为退化图像
var smoothKernel = [9]float64{
	1, 1, 1,
	1, 5, 1,
	1, 1, 1,
}

// Refine 修复模型输出的 alpha 通道，RGB 通道保持不变
//
//	standard: 高斯模糊 σ=0.3
//	high:     高斯模糊 σ=0.5 → 锐化 1.2 → 闭运算 2x2 → 开运算 1x1
//
// 尽力而为：内部出错时记录警告并原样返回输入
func Refine(img image.Image, quality model.Quality) *image.NRGBA {
	if img == nil {
		slog.Warn("post-processing warning", "err", "nil image")
		return nil
	}

	src := toNRGBA(img)
	out, err := refine(src, quality)
	if err != nil {
		slog.Warn("post-processing warning", "err", err, "quality", quality)
		return src
	}
	return out
}

func refine(src *image.NRGBA, quality model.Quality) (out *image.NRGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("refine panic: %v", r)
		}
	}()

	if src.Bounds().Empty() {
		return nil, errors.New("empty image")
	}

	alpha := extractAlpha(src)
	if quality == model.QualityHigh {
		alpha = gaussian(alpha, highBlurSigma)
		alpha = sharpen(alpha, sharpnessFactor)
		alpha = closing(alpha, closeKernel)
		alpha = opening(alpha, openKernel)
	} else {
		alpha = gaussian(alpha, standardBlurSigma)
	}

	return withAlpha(src, alpha), nil
}

func extractAlpha(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	alpha := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			alpha.Pix[y*alpha.Stride+x] = row[x*4+3]
		}
	}
	return alpha
}

// withAlpha 复制 RGB，替换 alpha
func withAlpha(img *image.NRGBA, alpha *image.Gray) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srcRow := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		dstRow := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()*4]
		copy(dstRow, srcRow)
		for x := 0; x < b.Dx(); x++ {
			dstRow[x*4+3] = alpha.Pix[y*alpha.Stride+x]
		}
	}
	return dst
}

// gaussian 只对单通道做高斯模糊
func gaussian(alpha *image.Gray, sigma float64) *image.Gray {
	return util.FirstChannel(imaging.Blur(alpha, sigma))
}

// sharpen 与 PIL ImageEnhance.Sharpness 相同：smooth + factor*(orig-smooth)。
// PIL 的 SMOOTH 滤镜不处理最外一圈像素，所以边框保持原值。
func sharpen(alpha *image.Gray, factor float64) *image.Gray {
	smooth := util.FirstChannel(imaging.Convolve3x3(alpha, smoothKernel, &imaging.ConvolveOptions{Normalize: true}))
	copyBorder(smooth, alpha)

	out := image.NewGray(alpha.Bounds())
	for i, v := range alpha.Pix {
		s := float64(smooth.Pix[i])
		out.Pix[i] = clampUint8(s + factor*(float64(v)-s))
	}
	return out
}

// copyBorder 把 src 最外一圈像素复制到 dst，两者尺寸相同且原点为 (0,0)
func copyBorder(dst, src *image.Gray) {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w == 0 || h == 0 {
		return
	}
	for x := range w {
		dst.Pix[x] = src.Pix[x]
		dst.Pix[(h-1)*dst.Stride+x] = src.Pix[(h-1)*src.Stride+x]
	}
	for y := range h {
		dst.Pix[y*dst.Stride] = src.Pix[y*src.Stride]
		dst.Pix[y*dst.Stride+w-1] = src.Pix[y*src.Stride+w-1]
	}
}

func clampUint8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
