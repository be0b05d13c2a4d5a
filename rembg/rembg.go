// Package rembg 加载分割模型并执行抠图。
// 流程只依赖 Backend 接口，ONNX Runtime 本地推理和远程 rembg 服务都实现了它。
package rembg

import (
	"context"
	"errors"
	"image"
	"image/color"
)

var ErrModelLoad = errors.New("model load failed")

// Session 是已加载、可直接推理的模型实例
type Session interface {
	Model() string
}

type Backend interface {
	// Load 加载模型，可能很慢（读取权重、建立推理会话）
	Load(ctx context.Context, model string) (Session, error)
	// Remove 返回与输入同尺寸的图像，alpha 为前景不透明度
	Remove(ctx context.Context, sess Session, img image.Image) (image.Image, error)
}

// Cutout 用 mask 作为 alpha，颜色取自 img（非预乘）
func Cutout(img image.Image, mask *image.Gray) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	mb := mask.Bounds()

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			c.A = mask.GrayAt(mb.Min.X+x, mb.Min.Y+y).Y
			dst.SetNRGBA(x, y, c)
		}
	}
	return dst
}
