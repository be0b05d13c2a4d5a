package util

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"os"

	_ "golang.org/x/image/webp"

	nhttp "github.com/chaos-io/bgremove/util/http"
)

var (
	ErrTooLarge       = errors.New("file too large")
	ErrUnsupportedURL = errors.New("only http and https urls are supported")
)

// DownloadImage 通过 cli 下载图片原始字节，只接受 http / https 地址，超过 maxBytes 返回 ErrTooLarge
func DownloadImage(ctx context.Context, cli nhttp.IClient, rawURL string, maxBytes int64) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}

	var data []byte
	header := make(http.Header)
	err = cli.DoHTTPRequest(ctx, &nhttp.RequestParam{
		RequestURI:       u.String(),
		Method:           http.MethodGet,
		Response:         &data,
		MaxResponseBytes: maxBytes,
		ResponseHeader:   header,
	})
	if err != nil {
		if errors.Is(err, nhttp.ErrResponseTooLarge) {
			return nil, "", ErrTooLarge
		}
		return nil, "", fmt.Errorf("download: %w", err)
	}

	return data, header.Get("Content-Type"), nil
}

// OpenImage 打开本地图片（png / jpeg / gif / webp）
func OpenImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	img, _, err := image.Decode(file)
	return img, err
}
