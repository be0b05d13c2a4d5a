package rembg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	nhttp "github.com/chaos-io/bgremove/util/http"
)

// Remote 把推理交给 rembg HTTP 服务
type Remote struct {
	baseURL string
	cli     nhttp.IClient
}

func NewRemote(baseURL string, timeout time.Duration) *Remote {
	return NewRemoteWithClient(baseURL, nhttp.NewHTTPClientWithTimeout(timeout))
}

func NewRemoteWithClient(baseURL string, cli nhttp.IClient) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		cli:     cli,
	}
}

type remoteSession struct {
	model string
}

func (s remoteSession) Model() string {
	return s.model
}

// Load 只确认服务可达，模型由服务端自己加载
func (r *Remote) Load(ctx context.Context, name string) (Session, error) {
	reqParam := &nhttp.RequestParam{
		RequestURI: r.baseURL + "/api",
		Method:     http.MethodGet,
	}
	if err := r.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("probe %s: %w", r.baseURL, err)
	}
	return remoteSession{model: name}, nil
}

/*
	curl -X POST "$BASE_URL/api/remove" \
	  -F "file=@my_image.png" \
	  -F "model=u2net" -o out.png
*/
func (r *Remote) Remove(ctx context.Context, sess Session, img image.Image) (image.Image, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	// file 文件字段，统一用 PNG 上传
	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := png.Encode(part, img); err != nil {
		return nil, fmt.Errorf("encode form file: %w", err)
	}

	_ = writer.WriteField("model", sess.Model())
	_ = writer.Close()

	var raw []byte
	reqParam := &nhttp.RequestParam{
		RequestURI: r.baseURL + "/api/remove",
		Method:     http.MethodPost,
		Header:     map[string]string{"Content-Type": writer.FormDataContentType()},
		Body:       body,
		Response:   &raw,
	}
	if err := r.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	slog.Debug("get the response", "model", sess.Model(), "bytes", len(raw))

	out, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
