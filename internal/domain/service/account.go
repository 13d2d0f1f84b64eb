package service

import "context"

// CreditService 积分/计费端口
type CreditService interface {
	// CanAfford 余额是否足够支付 cost
	CanAfford(ctx context.Context, cost int64) (bool, error)

	// RefreshAfterOperation 批次成功后刷新余额
	RefreshAfterOperation(ctx context.Context) error
}

// AuthService 认证端口
type AuthService interface {
	// IsAuthenticated 当前会话是否已登录
	IsAuthenticated(ctx context.Context) (bool, error)
}
