package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"

	"github.com/chaos-io/bgremove/model"
	"github.com/chaos-io/bgremove/pipeline"
	"github.com/chaos-io/bgremove/util"
)

// 允许上传的图片类型及其扩展名
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var errBadRequest = errors.New("bad request")

type removeResponse struct {
	OriginalFileName  string            `json:"originalFileName"`
	ProcessedFileName string            `json:"processedFileName"`
	ProcessedImageURL string            `json:"processedImageUrl"`
	Quality           model.Quality     `json:"quality"`
	FileSize          int64             `json:"fileSize"`
	ProcessingTime    float64           `json:"processingTime"`
	ModelUsed         string            `json:"modelUsed"`
	ModelInfo         *model.Descriptor `json:"modelInfo"`
	OutputDimensions  *[2]int           `json:"outputDimensions"`
	APIUsed           string            `json:"apiUsed"`
}

// upload 是读取到内存中的输入图片
type upload struct {
	name        string
	contentType string
	data        []byte
}

func (s *Server) removeBackground(c *gin.Context) {
	runID := c.GetString(runIDKey)
	// 留出 multipart 头部的余量，超出部分在解析时报错
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes+1<<20)

	// 先解析上传，表单字段随之可用
	up, err := s.readUpload(c)
	if err != nil {
		if errors.Is(err, errBadRequest) {
			s.reject(c, strings.TrimPrefix(err.Error(), errBadRequest.Error()+": "))
			return
		}
		s.fail(c, err.Error())
		return
	}

	quality, err := model.ParseQuality(c.PostForm("quality"))
	if err != nil {
		s.reject(c, err.Error())
		return
	}
	forced := c.PostForm("model")
	if forced != "" && !model.Valid(forced) {
		s.reject(c, fmt.Sprintf("Unknown model %q. Available: %s", forced, strings.Join(model.IDs(), ", ")))
		return
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		s.fail(c, "Failed to create upload directory: "+err.Error())
		return
	}

	id := ksuid.New().String()
	inputPath := filepath.Join(s.cfg.UploadDir, "input_"+id+allowedTypes[up.contentType])
	outputPath := filepath.Join(s.cfg.UploadDir, "output_"+id+".png")
	defer func() {
		for _, p := range []string{inputPath, outputPath} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.Warn("cleanup warning", "path", p, "err", err)
			}
		}
	}()

	if err := os.WriteFile(inputPath, up.data, 0o644); err != nil {
		s.fail(c, "Failed to store upload: "+err.Error())
		return
	}

	res := s.remover.Process(c.Request.Context(), pipeline.Request{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Quality:    quality,
		ForceModel: forced,
		RunID:      runID,
	})
	if !res.Success {
		s.metrics.observe(outcomeFailure, "", res.ProcessingTime)
		s.fail(c, res.Error)
		return
	}
	s.metrics.observe(outcomeSuccess, res.ModelUsed, res.ProcessingTime)

	processed, err := os.ReadFile(outputPath)
	if err != nil {
		s.fail(c, "Failed to read result: "+err.Error())
		return
	}

	apiName := res.ModelUsed
	if res.ModelInfo != nil {
		apiName = res.ModelInfo.DisplayName
	}
	base := strings.TrimSuffix(up.name, filepath.Ext(up.name))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": removeResponse{
			OriginalFileName:  up.name,
			ProcessedFileName: "processed_" + base + ".png",
			ProcessedImageURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(processed),
			Quality:           res.Quality,
			FileSize:          res.FileSize,
			ProcessingTime:    res.ProcessingTime,
			ModelUsed:         res.ModelUsed,
			ModelInfo:         res.ModelInfo,
			OutputDimensions:  res.OutputDimensions,
			APIUsed:           fmt.Sprintf("Advanced AI (%s)", apiName),
		},
	})
}

// readUpload 读取表单中的 image 文件，没有文件且开启了 AllowImageURL 时下载 image_url
func (s *Server) readUpload(c *gin.Context) (*upload, error) {
	tooLarge := fmt.Errorf("%w: File size too large. Please upload an image smaller than %dMB.", errBadRequest, s.cfg.MaxUploadBytes>>20)

	fh, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, tooLarge
		}
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return s.readURL(c, tooLarge)
		}
		return nil, fmt.Errorf("%w: Invalid form: %v", errBadRequest, err)
	}

	contentType := mediaType(fh.Header.Get("Content-Type"))
	if _, ok := allowedTypes[contentType]; !ok {
		return nil, fmt.Errorf("%w: Invalid file type. Please upload a JPEG, PNG, or WebP image.", errBadRequest)
	}
	if fh.Size > s.cfg.MaxUploadBytes {
		return nil, tooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, tooLarge
	}

	return &upload{name: filepath.Base(fh.Filename), contentType: contentType, data: data}, nil
}

func (s *Server) readURL(c *gin.Context, tooLarge error) (*upload, error) {
	imageURL := c.PostForm("image_url")
	if imageURL == "" {
		return nil, fmt.Errorf("%w: No image file provided", errBadRequest)
	}
	if !s.cfg.AllowImageURL {
		return nil, fmt.Errorf("%w: image_url is disabled on this server, upload the image file instead", errBadRequest)
	}

	data, contentType, err := util.DownloadImage(c.Request.Context(), s.fetcher, imageURL, s.cfg.MaxUploadBytes)
	if err != nil {
		if errors.Is(err, util.ErrTooLarge) {
			return nil, tooLarge
		}
		return nil, fmt.Errorf("%w: Failed to fetch image_url: %v", errBadRequest, err)
	}

	contentType = mediaType(contentType)
	if _, ok := allowedTypes[contentType]; !ok {
		return nil, fmt.Errorf("%w: Invalid file type. Please upload a JPEG, PNG, or WebP image.", errBadRequest)
	}

	name := filepath.Base(strings.SplitN(imageURL, "?", 2)[0])
	if name == "" || name == "." || name == "/" {
		name = "image" + allowedTypes[contentType]
	}
	return &upload{name: name, contentType: contentType, data: data}, nil
}

func (s *Server) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": model.All()})
}

func (s *Server) reject(c *gin.Context, msg string) {
	s.metrics.observe(outcomeRejected, "", 0)
	slog.Warn("request rejected", "reason", msg, "run_id", c.GetString(runIDKey))
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

func (s *Server) fail(c *gin.Context, msg string) {
	slog.Error("background removal error", "err", msg, "run_id", c.GetString(runIDKey))
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": msg})
}

func mediaType(v string) string {
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return mt
}
