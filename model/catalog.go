// Package model 包含分割模型目录和模型选择策略。
package model

import (
	"fmt"
	"sort"
)

const (
	U2Net        = "u2net"
	ISNetGeneral = "isnet-general-use"
	BiRefNet     = "birefnet-general"
	U2NetHuman   = "u2net_human_seg"
)

type Speed string

const (
	SpeedFast   Speed = "fast"
	SpeedMedium Speed = "medium"
	SpeedSlow   Speed = "slow"
)

type Tier string

const (
	TierGood               Tier = "good"
	TierExcellent          Tier = "excellent"
	TierExceptional        Tier = "exceptional"
	TierExcellentForHumans Tier = "excellent_for_humans"
)

// Descriptor 描述一个分割模型
type Descriptor struct {
	ID          string `json:"identifier"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Speed       Speed  `json:"speed_tier"`
	Quality     Tier   `json:"quality_tier"`
}

var catalog = map[string]Descriptor{
	U2Net: {
		ID:          U2Net,
		DisplayName: "U²-Net General",
		Description: "Best for general objects, products, and simple portraits",
		Speed:       SpeedFast,
		Quality:     TierGood,
	},
	ISNetGeneral: {
		ID:          ISNetGeneral,
		DisplayName: "IS-Net General",
		Description: "High-quality general purpose model for complex scenes",
		Speed:       SpeedMedium,
		Quality:     TierExcellent,
	},
	BiRefNet: {
		ID:          BiRefNet,
		DisplayName: "BiRefNet General",
		Description: "State-of-the-art for complex backgrounds and fine details",
		Speed:       SpeedSlow,
		Quality:     TierExceptional,
	},
	U2NetHuman: {
		ID:          U2NetHuman,
		DisplayName: "U²-Net Human",
		Description: "Optimized specifically for human portraits",
		Speed:       SpeedFast,
		Quality:     TierExcellentForHumans,
	},
}

// Lookup 按 id 查找模型描述
func Lookup(id string) (Descriptor, bool) {
	d, ok := catalog[id]
	return d, ok
}

// Valid 判断 id 是否是目录中的模型
func Valid(id string) bool {
	_, ok := catalog[id]
	return ok
}

// IDs 按字典序返回所有模型 id
func IDs() []string {
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All 返回按 id 排序的全部模型描述
func All() []Descriptor {
	out := make([]Descriptor, 0, len(catalog))
	for _, id := range IDs() {
		out = append(out, catalog[id])
	}
	return out
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%s, %s)", d.DisplayName, d.Speed, d.Quality)
}
