package api

import (
	"context"

	"go.uber.org/zap"

	"styleswap/internal/account"
	"styleswap/internal/affiliate"
	"styleswap/internal/settings"
	"styleswap/internal/styleswap"
	"styleswap/internal/tasks"
)

type OrderStore interface {
	CreateTransaction(ctx context.Context, t *styleswap.Transaction) error
	SettleTransaction(ctx context.Context, t *styleswap.Transaction) (*styleswap.Transaction, error)
	ListTransactionsByEmail(ctx context.Context, email string) ([]styleswap.Transaction, error)
}

type AccrualQueue interface {
	EnqueueAccrual(ctx context.Context, st affiliate.Settlement) error
}

type AdminCredentials struct {
	Username     string
	PasswordHash string // bcrypt
}

// App carries the services the handlers need. It is stored on every request
// context under "app".
type App struct {
	Accounts       *account.Service
	Affiliates     *affiliate.Service
	Settings       *settings.Service
	Orders         OrderStore
	Accruals       AccrualQueue
	FailedAccruals func() ([]tasks.FailedAccrual, error)
	Origin         string
	WebhookSecret  string
	Admin          AdminCredentials
	Log            *zap.Logger
}
