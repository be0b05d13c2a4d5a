package pipeline

import (
	"math"
	"time"

	"github.com/chaos-io/bgremove/model"
)

// Result 是一次处理的结果，CLI 直接输出为 JSON
type Result struct {
	Success          bool              `json:"success"`
	ModelUsed        string            `json:"model_used,omitempty"`
	ModelInfo        *model.Descriptor `json:"model_info,omitempty"`
	ProcessingTime   float64           `json:"processing_time_seconds"`
	FileSize         int64             `json:"file_size_bytes,omitempty"`
	OutputDimensions *[2]int           `json:"output_dimensions,omitempty"`
	Quality          model.Quality     `json:"quality"`
	Error            string            `json:"error,omitempty"`

	// Label 是分类结果，指定模型时也会记录
	Label model.Label `json:"-"`
	// Err 保留原始错误，便于 errors.Is 判断
	Err error `json:"-"`
}

// Failed 构造流程开始前就失败的结果，例如配置或后端初始化出错
func Failed(err error, quality model.Quality, elapsed time.Duration) *Result {
	return &Result{
		ProcessingTime: roundSeconds(elapsed.Seconds()),
		Quality:        reportedQuality(quality),
		Error:          err.Error(),
		Err:            err,
	}
}

// reportedQuality 只输出合法的档位，空值或非法值按 standard 记录
func reportedQuality(q model.Quality) model.Quality {
	parsed, err := model.ParseQuality(string(q))
	if err != nil {
		return model.QualityStandard
	}
	return parsed
}

func roundSeconds(s float64) float64 {
	return math.Round(max(s, 0)*100) / 100
}
