package rembg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/chaos-io/bgremove/model"
	"github.com/chaos-io/bgremove/util"
)

type ONNXConfig struct {
	// ModelDir 存放 <model>.onnx 权重文件的目录
	ModelDir string
	// LibraryPath 为空时在常见路径中查找 onnxruntime 动态库
	LibraryPath    string
	IntraOpThreads int
}

// modelSpec 描述模型的输入尺寸和归一化参数
type modelSpec struct {
	file    string
	size    int
	mean    [3]float32
	std     [3]float32
	sigmoid bool
}

var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

var modelSpecs = map[string]modelSpec{
	model.U2Net:        {file: "u2net.onnx", size: 320, mean: imagenetMean, std: imagenetStd},
	model.U2NetHuman:   {file: "u2net_human_seg.onnx", size: 320, mean: imagenetMean, std: imagenetStd},
	model.ISNetGeneral: {file: "isnet-general-use.onnx", size: 1024, mean: [3]float32{0.5, 0.5, 0.5}, std: [3]float32{1, 1, 1}},
	model.BiRefNet:     {file: "BiRefNet-general-epoch_244.onnx", size: 1024, mean: imagenetMean, std: imagenetStd, sigmoid: true},
}

// ONNX 在本进程内用 ONNX Runtime 推理
type ONNX struct {
	cfg ONNXConfig

	initOnce sync.Once
	initErr  error
}

func NewONNX(cfg ONNXConfig) *ONNX {
	return &ONNX{cfg: cfg}
}

type onnxSession struct {
	model string
	spec  modelSpec

	// 同一个 ORT session 不并发 Run
	mu   sync.Mutex
	sess *ort.DynamicAdvancedSession
}

func (s *onnxSession) Model() string {
	return s.model
}

func (s *onnxSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.Destroy()
}

func (o *ONNX) Load(ctx context.Context, name string) (Session, error) {
	spec, ok := modelSpecs[name]
	if !ok {
		return nil, fmt.Errorf("no onnx weights known for %q", name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(o.cfg.ModelDir, spec.file)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	o.initOnce.Do(func() { o.initErr = o.initEnvironment() })
	if o.initErr != nil {
		return nil, o.initErr
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("io info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) == 0 {
		return nil, fmt.Errorf("unexpected io (in:%d out:%d)", len(inputs), len(outputs))
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session opts: %w", err)
	}
	defer func() { _ = opts.Destroy() }()
	if o.cfg.IntraOpThreads > 0 {
		_ = opts.SetIntraOpNumThreads(o.cfg.IntraOpThreads)
	}

	sess, err := ort.NewDynamicAdvancedSession(path, []string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	slog.Debug("onnx session created", "model", name, "path", path, "input", inputs[0].Name, "output", outputs[0].Name)
	return &onnxSession{model: name, spec: spec, sess: sess}, nil
}

func (o *ONNX) Remove(ctx context.Context, sess Session, img image.Image) (image.Image, error) {
	s, ok := sess.(*onnxSession)
	if !ok {
		return nil, fmt.Errorf("unexpected session type %T", sess)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("empty image")
	}

	small := imaging.Resize(img, s.spec.size, s.spec.size, imaging.Lanczos)
	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(s.spec.size), int64(s.spec.size)), s.spec.tensor(small))
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer func() { _ = input.Destroy() }()

	outputs := []ort.Value{nil}
	s.mu.Lock()
	err = s.sess.Run([]ort.Value{input}, outputs)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	defer func() {
		if outputs[0] != nil {
			_ = outputs[0].Destroy()
		}
	}()

	t, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.New("invalid output tensor type")
	}
	shape := t.GetShape()
	if len(shape) < 2 {
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}
	oh, ow := int(shape[len(shape)-2]), int(shape[len(shape)-1])

	mask := predictionMask(t.GetData(), ow, oh, s.spec.sigmoid)
	full := imaging.Resize(mask, b.Dx(), b.Dy(), imaging.Lanczos)
	return Cutout(img, util.FirstChannel(full)), nil
}

// tensor 生成 NCHW float32 输入：先按全图最大值缩放，再减均值除方差
func (spec modelSpec) tensor(img *image.NRGBA) []float32 {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	plane := w * h
	data := make([]float32, 3*plane)

	var peak uint8
	for i := 0; i < len(img.Pix); i += 4 {
		peak = max(peak, img.Pix[i], img.Pix[i+1], img.Pix[i+2])
	}
	scale := float32(1)
	if peak > 0 {
		scale = float32(peak)
	}

	for y := range h {
		for x := range w {
			off := y*img.Stride + x*4
			idx := y*w + x
			for c := range 3 {
				v := float32(img.Pix[off+c]) / scale
				data[c*plane+idx] = (v - spec.mean[c]) / spec.std[c]
			}
		}
	}
	return data
}

// predictionMask 取输出的第一个平面，min-max 归一化到 0..255
func predictionMask(pred []float32, w, h int, sigmoid bool) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, w, h))
	n := w * h
	if len(pred) < n {
		return mask
	}

	plane := make([]float64, n)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range n {
		v := float64(pred[i])
		if sigmoid {
			v = 1 / (1 + math.Exp(-v))
		}
		plane[i] = v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo <= 0 {
		return mask
	}

	for i, v := range plane {
		mask.Pix[i] = uint8(math.Round((v - lo) / (hi - lo) * 255))
	}
	return mask
}

func (o *ONNX) initEnvironment() error {
	path, err := o.libraryPath()
	if err != nil {
		return fmt.Errorf("onnx lib path: %w", err)
	}
	ort.SetSharedLibraryPath(path)

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("init onnx: %w", err)
		}
	}
	return nil
}

func (o *ONNX) libraryPath() (string, error) {
	if o.cfg.LibraryPath != "" {
		if _, err := os.Stat(o.cfg.LibraryPath); err != nil {
			return "", err
		}
		return o.cfg.LibraryPath, nil
	}

	var name string
	switch runtime.GOOS {
	case "linux":
		name = "libonnxruntime.so"
	case "darwin":
		name = "libonnxruntime.dylib"
	case "windows":
		name = "onnxruntime.dll"
	default:
		return "", fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}

	for _, dir := range []string{"/usr/local/lib", "/usr/lib", "/opt/onnxruntime/lib", "/opt/homebrew/lib"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s not found, set onnxruntime_lib", name)
}
