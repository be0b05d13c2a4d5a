// Package imgproc 负责推理前的图片预处理，以及修复模型输出的 alpha 通道。
package imgproc

import (
	"image"
	"image/color"
	"log/slog"

	"golang.org/x/image/draw"

	"github.com/chaos-io/bgremove/model"
)

const (
	StandardMaxSide = 1200
	HighMaxSide     = 2400
)

// MaxSide 返回质量档位对应的最长边上限
func MaxSide(q model.Quality) int {
	if q == model.QualityHigh {
		return HighMaxSide
	}
	return StandardMaxSide
}

// Normalize 把任意输入图片变成
//
//	不透明 RGB（透明部分铺在白底上）
//	最长边 <= MaxSide(quality)，等比缩放
//
// 返回图像的 Bounds 从 (0,0) 开始
func Normalize(img image.Image, quality model.Quality) *image.RGBA {
	flat := Flatten(img)
	return Resize(flat, quality)
}

// Flatten 以 alpha 为权重把图像合成到纯白画布上，结果完全不透明
func Flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if !hasUsefulAlpha(img) {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}

	slog.Debug("flattening transparency onto white", "width", b.Dx(), "height", b.Dy())
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// Resize 按质量档位缩放；已在上限内时原样返回
func Resize(img *image.RGBA, quality model.Quality) *image.RGBA {
	return resizeWithinMax(toRGBA(img), MaxSide(quality))
}
