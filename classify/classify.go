// Package classify 根据图片宽高比和肤色像素占比粗略判断图中是否有人。
// 启发式允许判错，错误只影响选到哪个模型。
package classify

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/chaos-io/bgremove/model"
	"github.com/chaos-io/bgremove/util"
)

const (
	portraitMinRatio = 1.2
	portraitMaxRatio = 2.0

	// 竖幅图片需要的肤色占比
	portraitSkinRatio = 0.10
	// 任意形状都适用的肤色占比
	skinRatio = 0.15
)

// 8 位 HSV 下的肤色范围（H 0..179，S/V 0..255）
const (
	skinHueMin, skinHueMax = 0, 20
	skinSatMin, skinSatMax = 20, 255
	skinValMin, skinValMax = 70, 255
)

// Classify 返回 LabelHuman 或 LabelGeneral，不会 panic，任何异常都按 LabelGeneral 处理
func Classify(img image.Image) (label model.Label) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("classification failed", "err", fmt.Sprint(r))
			label = model.LabelGeneral
		}
	}()

	if img == nil {
		return model.LabelGeneral
	}
	b := img.Bounds()
	if b.Empty() {
		return model.LabelGeneral
	}

	ratio, err := skinShare(img)
	if err != nil {
		slog.Warn("skin mask failed", "err", err)
		return model.LabelGeneral
	}

	label = Decide(b.Dx(), b.Dy(), ratio)
	slog.Debug("classified image", "width", b.Dx(), "height", b.Dy(), "skin_ratio", ratio, "label", label)
	return label
}

// File 解码本地图片后分类，解码失败时返回错误
func File(path string) (model.Label, error) {
	img, err := util.OpenImage(path)
	if err != nil {
		return model.LabelGeneral, fmt.Errorf("decode %s: %w", path, err)
	}
	return Classify(img), nil
}

// Decide 按阈值判断：w、h 为图片尺寸，ratio 为肤色像素占比
func Decide(w, h int, ratio float64) model.Label {
	if w <= 0 || h <= 0 {
		return model.LabelGeneral
	}

	aspect := float64(h) / float64(w)
	portrait := aspect >= portraitMinRatio && aspect <= portraitMaxRatio

	switch {
	case portrait && ratio > portraitSkinRatio:
		return model.LabelHuman
	case ratio > skinRatio:
		return model.LabelHuman
	default:
		return model.LabelGeneral
	}
}

func inSkinRange(h, s, v uint8) bool {
	return h >= skinHueMin && h <= skinHueMax &&
		s >= skinSatMin && s <= skinSatMax &&
		v >= skinValMin && v <= skinValMax
}
