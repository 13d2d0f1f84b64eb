package backend

import (
	"context"
	"net/http"
	"sync"

	"screenplay-wizard/internal/domain/service"
	apperrors "screenplay-wizard/pkg/errors"
)

// CreditClient 积分 API 实现，缓存最近一次查询到的余额
type CreditClient struct {
	client *Client

	mu      sync.Mutex
	balance int64
	known   bool
}

// NewCreditClient 创建积分客户端
func NewCreditClient(client *Client) *CreditClient {
	return &CreditClient{client: client}
}

var _ service.CreditService = (*CreditClient)(nil)

type balanceResponse struct {
	Credits int64 `json:"credits"`
}

func (c *CreditClient) fetch(ctx context.Context) (int64, error) {
	var resp balanceResponse
	err := c.client.do(ctx, request{
		method:   http.MethodGet,
		endpoint: "credits-balance",
		path:     "/api/credits/balance",
		out:      &resp,
		failCode: apperrors.CodeBackendError,
	})
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.balance = resp.Credits
	c.known = true
	c.mu.Unlock()
	return resp.Credits, nil
}

// CanAfford 余额是否不少于 cost；余额未知时先查询
func (c *CreditClient) CanAfford(ctx context.Context, cost int64) (bool, error) {
	c.mu.Lock()
	balance, known := c.balance, c.known
	c.mu.Unlock()
	if !known {
		var err error
		if balance, err = c.fetch(ctx); err != nil {
			return false, err
		}
	}
	return balance >= cost, nil
}

// RefreshAfterOperation 重新查询余额
func (c *CreditClient) RefreshAfterOperation(ctx context.Context) error {
	_, err := c.fetch(ctx)
	return err
}

// Balance 返回缓存的余额
func (c *CreditClient) Balance() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance, c.known
}

// AuthClient 会话认证 API 实现
type AuthClient struct {
	client *Client
}

// NewAuthClient 创建认证客户端
func NewAuthClient(client *Client) *AuthClient {
	return &AuthClient{client: client}
}

var _ service.AuthService = (*AuthClient)(nil)

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId"`
}

// IsAuthenticated 查询当前会话；401 视为未登录
func (a *AuthClient) IsAuthenticated(ctx context.Context) (bool, error) {
	var resp sessionResponse
	err := a.client.do(ctx, request{
		method:   http.MethodGet,
		endpoint: "auth-session",
		path:     "/api/auth/session",
		out:      &resp,
		failCode: apperrors.CodeBackendError,
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeRegistrationRequired) {
			return false, nil
		}
		return false, err
	}
	return resp.Authenticated, nil
}
