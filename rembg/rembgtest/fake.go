// Package rembgtest 提供测试用的内存 rembg.Backend，输出是确定的。
package rembgtest

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/chaos-io/bgremove/rembg"
)

var ErrInjected = errors.New("injected failure")

// Fake 用固定的椭圆 mask 抠图：中心区域不透明，四周透明
type Fake struct {
	// LoadDelay 模拟耗时的模型加载
	LoadDelay time.Duration
	// FailLoad 中的模型加载失败
	FailLoad map[string]bool
	// FailRemove 为 true 时所有推理失败
	FailRemove bool
	// Resize 非零时返回该尺寸的结果，用于测试尺寸校验
	Resize image.Point

	mu      sync.Mutex
	loads   map[string]int
	removes []string
}

type session struct {
	model string
}

func (s session) Model() string {
	return s.model
}

func (f *Fake) Load(ctx context.Context, model string) (rembg.Session, error) {
	if f.LoadDelay > 0 {
		select {
		case <-time.After(f.LoadDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loads == nil {
		f.loads = make(map[string]int)
	}
	f.loads[model]++

	if f.FailLoad[model] {
		return nil, ErrInjected
	}
	return session{model: model}, nil
}

func (f *Fake) Remove(ctx context.Context, sess rembg.Session, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.removes = append(f.removes, sess.Model())
	f.mu.Unlock()

	if f.FailRemove {
		return nil, ErrInjected
	}

	if f.Resize != (image.Point{}) {
		return image.NewNRGBA(image.Rectangle{Max: f.Resize}), nil
	}
	b := img.Bounds()
	return rembg.Cutout(img, Ellipse(b.Dx(), b.Dy())), nil
}

// Loads 返回模型 Load 被调用的次数（含失败）
func (f *Fake) Loads(model string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads[model]
}

// Removes 按调用顺序返回每次推理使用的模型
func (f *Fake) Removes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removes...)
}

// Ellipse 返回内切椭圆为 255、其余为 0 的 mask
func Ellipse(w, h int) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, w, h))
	cx, cy := float64(w)/2, float64(h)/2
	rx, ry := float64(w)/2, float64(h)/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := (float64(x) + 0.5 - cx) / rx
			dy := (float64(y) + 0.5 - cy) / ry
			if dx*dx+dy*dy <= 1 {
				mask.Pix[y*mask.Stride+x] = 255
			}
		}
	}
	return mask
}
