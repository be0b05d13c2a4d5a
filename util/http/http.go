package http

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrResponseTooLarge 表示响应体超过 RequestParam.MaxResponseBytes
var ErrResponseTooLarge = errors.New("response body too large")

// IClient 是后端推理服务使用的 HTTP 客户端抽象
type IClient interface {
	DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error
}

// RequestParam 描述一次请求
//
//	Body:     nil / io.Reader / []byte 原样发送，其它类型按 JSON 编码
//	Response: nil 忽略响应体；*[]byte 保存原始字节；其它按 JSON 解码
//	MaxResponseBytes > 0 时限制响应体大小；ResponseHeader 非 nil 时写入响应头
type RequestParam struct {
	RequestURI string
	Method     string
	Header     map[string]string
	Body       interface{}
	Response   interface{}

	Timeout          time.Duration
	MaxResponseBytes int64
	ResponseHeader   http.Header
}
