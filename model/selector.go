package model

import (
	"errors"
	"fmt"
)

var ErrUnknownModel = errors.New("unknown model")

// Label 是图片内容的粗分类
type Label string

const (
	LabelHuman   Label = "human"
	LabelGeneral Label = "general"
)

// Quality 是调用方选择的处理档位
type Quality string

const (
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
)

// ParseQuality 解析命令行或表单中的档位，空值视为 standard
func ParseQuality(s string) (Quality, error) {
	switch Quality(s) {
	case "", QualityStandard:
		return QualityStandard, nil
	case QualityHigh:
		return QualityHigh, nil
	}
	return "", fmt.Errorf("invalid quality %q: must be %q or %q", s, QualityStandard, QualityHigh)
}

// Select 为图片选择模型。forced 非空时跳过策略表，但必须是目录中的 id
func Select(label Label, quality Quality, forced string) (string, error) {
	if forced != "" {
		if !Valid(forced) {
			return "", fmt.Errorf("%w: %s", ErrUnknownModel, forced)
		}
		return forced, nil
	}

	if label == LabelHuman {
		// 两个档位都优先用人像模型
		return U2NetHuman, nil
	}
	if quality == QualityHigh {
		return BiRefNet, nil
	}
	return U2Net, nil
}
