// Package backend 提供剧本后端 HTTP API 客户端（生成、持久化、积分、认证）
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"screenplay-wizard/internal/config"
	apperrors "screenplay-wizard/pkg/errors"
	"screenplay-wizard/pkg/metrics"
	"screenplay-wizard/pkg/tracer"
)

const (
	defaultTimeout  = 180 * time.Second
	maxErrorBodyLen = 4096
)

// Client 后端 API 基础客户端
type Client struct {
	baseURL    string
	token      string
	username   string
	httpClient *http.Client
}

// NewClient 创建后端客户端
func NewClient(cfg *config.BackendConfig) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("backend base url is empty")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:  base,
		token:    cfg.APIToken,
		username: cfg.Username,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Username 持久化接口默认用户
func (c *Client) Username() string {
	return c.username
}

// request 单次调用描述
type request struct {
	method string
	// endpoint 指标与追踪使用的稳定名称
	endpoint string
	path     string
	query    url.Values
	body     any
	out      any
	// failCode 非 2xx 时使用的错误码
	failCode apperrors.ErrorCode
	// notFound 404 时使用的错误，为空则按 failCode 处理
	notFound *apperrors.AppError
}

// errorBody 后端错误响应
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do 发送 JSON 请求并解码响应。ctx 取消时返回 ctx.Err()，便于调用方区分取消与失败。
func (c *Client) do(ctx context.Context, r request) error {
	ctx, span := tracer.Start(ctx, "backend."+r.endpoint, trace.WithAttributes(
		attribute.String("http.method", r.method),
		attribute.String("backend.endpoint", r.endpoint),
	))
	defer span.End()

	start := time.Now()
	status := "error"
	defer func() {
		metrics.BackendCallDuration.WithLabelValues(r.endpoint).Observe(time.Since(start).Seconds())
		metrics.BackendCallTotal.WithLabelValues(r.endpoint, status).Inc()
	}()

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			tracer.RecordError(span, err)
			return apperrors.Wrap(err, apperrors.CodeInternalError, "failed to encode backend request")
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		tracer.RecordError(span, err)
		return apperrors.Wrap(err, apperrors.CodeInternalError, "failed to create backend request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if r.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			status = "cancelled"
			return ctx.Err()
		}
		tracer.RecordError(span, err)
		return apperrors.Wrap(err, r.failCode, "backend is unreachable")
	}
	defer httpResp.Body.Close()

	status = strconv.Itoa(httpResp.StatusCode)
	span.SetAttributes(attribute.Int("http.status_code", httpResp.StatusCode))

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		appErr := c.statusError(httpResp, r)
		tracer.RecordError(span, appErr)
		return appErr
	}

	if r.out == nil {
		return nil
	}
	if err := json.NewDecoder(httpResp.Body).Decode(r.out); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		tracer.RecordError(span, err)
		return apperrors.Wrap(err, apperrors.CodeBackendError, fmt.Sprintf("invalid %s response", r.endpoint))
	}
	return nil
}

// statusError 把非 2xx 响应转换为应用错误，优先使用服务端消息
func (c *Client) statusError(resp *http.Response, r request) *apperrors.AppError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))

	var eb errorBody
	msg := ""
	if json.Unmarshal(raw, &eb) == nil {
		msg = strings.TrimSpace(eb.Error)
		if msg == "" {
			msg = strings.TrimSpace(eb.Message)
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("%s request failed with status %d", r.endpoint, resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.New(apperrors.CodeRegistrationRequired, msg)
	case resp.StatusCode == http.StatusPaymentRequired:
		return apperrors.New(apperrors.CodeInsufficientCredits, msg)
	case resp.StatusCode == http.StatusNotFound && r.notFound != nil:
		return r.notFound.WithDetail(msg)
	}
	return apperrors.New(r.failCode, msg)
}

// segment 转义单个路径段
func segment(s string) string {
	return "/" + url.PathEscape(s)
}

// HealthCheck 探测后端是否可达；任何非 5xx 响应都视为可用
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend is unreachable: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return nil
}
