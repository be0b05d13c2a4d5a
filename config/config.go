// Package config 加载 bgremove 配置，优先级依次为默认值、YAML 文件、BGREMOVE_* 环境变量。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendONNX   = "onnx"
	BackendRemote = "remote"
)

const envPrefix = "BGREMOVE_"

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Backend        string        `yaml:"backend"`
	ModelDir       string        `yaml:"model_dir"`
	ONNXRuntimeLib string        `yaml:"onnxruntime_lib"`
	IntraOpThreads int           `yaml:"intra_op_threads"`
	RemoteURL      string        `yaml:"remote_url"`
	RemoteTimeout  time.Duration `yaml:"remote_timeout"`
	LogLevel       string        `yaml:"log_level"`
	Server         Server        `yaml:"server"`
}

type Server struct {
	Addr           string        `yaml:"addr"`
	UploadDir      string        `yaml:"upload_dir"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	SweepSchedule  string        `yaml:"sweep_schedule"`
	UploadTTL      time.Duration `yaml:"upload_ttl"`
	// AllowImageURL 打开后接口才接受 image_url 表单字段并由服务端下载
	AllowImageURL  bool          `yaml:"allow_image_url"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
}

func Default() *Config {
	return &Config{
		Backend:       BackendONNX,
		ModelDir:      defaultModelDir(),
		RemoteURL:     "http://localhost:7000",
		RemoteTimeout: 2 * time.Minute,
		LogLevel:      "info",
		Server: Server{
			Addr:           ":8080",
			UploadDir:      filepath.Join(os.TempDir(), "bgremove-uploads"),
			MaxUploadBytes: 10 << 20,
			SweepSchedule:  "@every 10m",
			UploadTTL:      time.Hour,
			FetchTimeout:   15 * time.Second,
		},
	}
}

// defaultModelDir 与 rembg 一致：$U2NET_HOME，否则 ~/.u2net
func defaultModelDir() string {
	if dir := os.Getenv("U2NET_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".u2net"
	}
	return filepath.Join(home, ".u2net")
}

// Load 读取配置，path 为空时只用默认值和环境变量
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("BACKEND", &c.Backend)
	str("MODEL_DIR", &c.ModelDir)
	str("ONNXRUNTIME_LIB", &c.ONNXRuntimeLib)
	str("REMOTE_URL", &c.RemoteURL)
	str("LOG_LEVEL", &c.LogLevel)
	str("ADDR", &c.Server.Addr)
	str("UPLOAD_DIR", &c.Server.UploadDir)
	str("SWEEP_SCHEDULE", &c.Server.SweepSchedule)

	var errs []error
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	duration("REMOTE_TIMEOUT", &c.RemoteTimeout)
	duration("UPLOAD_TTL", &c.Server.UploadTTL)
	duration("FETCH_TIMEOUT", &c.Server.FetchTimeout)

	if v, ok := lookup(envPrefix + "ALLOW_IMAGE_URL"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sALLOW_IMAGE_URL: %w", envPrefix, err))
		} else {
			c.Server.AllowImageURL = b
		}
	}

	if v, ok := lookup(envPrefix + "INTRA_OP_THREADS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sINTRA_OP_THREADS: %w", envPrefix, err))
		} else {
			c.IntraOpThreads = n
		}
	}
	if v, ok := lookup(envPrefix + "MAX_UPLOAD_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_UPLOAD_BYTES: %w", envPrefix, err))
		} else {
			c.Server.MaxUploadBytes = n
		}
	}

	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendONNX:
		if c.ModelDir == "" {
			return fmt.Errorf("%w: model_dir is required for the onnx backend", ErrInvalid)
		}
	case BackendRemote:
		if c.RemoteURL == "" {
			return fmt.Errorf("%w: remote_url is required for the remote backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: backend must be %q or %q, got %q", ErrInvalid, BackendONNX, BackendRemote, c.Backend)
	}

	if c.IntraOpThreads < 0 {
		return fmt.Errorf("%w: intra_op_threads must not be negative", ErrInvalid)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: server.max_upload_bytes must be positive", ErrInvalid)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel 解析 log_level（debug / info / warn / error）
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}
	return level, nil
}
