// Package pipeline 执行一次完整的抠图请求：解码、分类、选模型、预处理、分割、修复 alpha、写出 PNG。
// 成功和失败都以 Result 返回。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chaos-io/bgremove/classify"
	"github.com/chaos-io/bgremove/imgproc"
	"github.com/chaos-io/bgremove/model"
	"github.com/chaos-io/bgremove/rembg"
	"github.com/chaos-io/bgremove/util"
)

type Request struct {
	InputPath  string
	OutputPath string
	Quality    model.Quality
	// ForceModel 非空时跳过模型选择策略
	ForceModel string
	// RunID 只用于日志关联
	RunID string
}

type Remover struct {
	cache    *rembg.SessionCache
	classify func(image.Image) model.Label
}

type Option func(*Remover)

// WithClassifier 替换默认的肤色启发式分类
func WithClassifier(fn func(image.Image) model.Label) Option {
	return func(r *Remover) {
		r.classify = fn
	}
}

func NewRemover(cache *rembg.SessionCache, opts ...Option) *Remover {
	r := &Remover{
		cache:    cache,
		classify: classify.Classify,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Remover) Cache() *rembg.SessionCache {
	return r.cache
}

// Process 不返回 error，失败信息都在 Result 里
func (r *Remover) Process(ctx context.Context, req Request) *Result {
	start := time.Now()
	logger := slog.With("input", req.InputPath)
	if req.RunID != "" {
		logger = logger.With("run_id", req.RunID)
	}

	res := &Result{Quality: reportedQuality(req.Quality)}

	err := r.run(ctx, logger, req, res)
	res.ProcessingTime = roundSeconds(time.Since(start).Seconds())
	if err != nil {
		res.Success = false
		res.ModelUsed = ""
		res.ModelInfo = nil
		res.FileSize = 0
		res.OutputDimensions = nil
		res.Error = err.Error()
		res.Err = err
		logger.Error("processing failed", "err", err, "elapsed", res.ProcessingTime)
		return res
	}

	res.Success = true
	logger.Info("processing done", "model", res.ModelUsed, "quality", res.Quality, "elapsed", res.ProcessingTime)
	return res
}

func (r *Remover) run(ctx context.Context, logger *slog.Logger, req Request, res *Result) error {
	quality, err := model.ParseQuality(string(req.Quality))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrQuality, req.Quality)
	}

	info, err := os.Stat(req.InputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrInputNotFound, req.InputPath)
		}
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrDecode, req.InputPath)
	}

	done := util.Trace("decode")
	img, err := util.OpenImage(req.InputPath)
	done()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return fmt.Errorf("%w: empty image", ErrDecode)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// 指定模型时分类照常运行，只是结果不参与选择
	done = util.Trace("classify")
	res.Label = r.classify(img)
	done()

	id, err := model.Select(res.Label, quality, req.ForceModel)
	if err != nil {
		return fmt.Errorf("%w: %w", rembg.ErrModelLoad, err)
	}
	logger.Debug("model selected", "label", res.Label, "model", id, "forced", req.ForceModel != "")

	done = util.Trace("preprocess")
	normalized := imgproc.Normalize(img, quality)
	done()
	if err := ctx.Err(); err != nil {
		return err
	}

	sess, err := r.cache.GetOrCreate(ctx, id)
	if err != nil {
		return err
	}

	done = util.Trace("inference")
	out, err := r.cache.Backend().Remove(ctx, sess, normalized)
	done()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInference, err)
	}
	if out == nil || out.Bounds().Size() != normalized.Bounds().Size() {
		return fmt.Errorf("%w: model returned wrong size", ErrInference)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	done = util.Trace("refine")
	refined := imgproc.Refine(out, quality)
	done()

	size, err := writePNG(req.OutputPath, refined)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	desc, _ := model.Lookup(id)
	b := refined.Bounds()
	res.ModelUsed = id
	res.ModelInfo = &desc
	res.FileSize = size
	res.OutputDimensions = &[2]int{b.Dx(), b.Dy()}
	return nil
}

// writePNG 先写临时文件再 rename，失败时不留下半成品
func writePNG(path string, img image.Image) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, ".bgremove-*.png")
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(tmp, img); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
