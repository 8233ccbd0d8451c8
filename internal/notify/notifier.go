// Package notify tells operators about partner program events on Telegram
// and pushes live updates to signed-in affiliates over Redis pub/sub.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"styleswap/internal/app"
	"styleswap/internal/styleswap"
	"styleswap/internal/worker"
)

type Notifier struct {
	pool *worker.Pool
	rdb  *redis.Client
	send SendFunc
	log  *zap.Logger
}

// New returns a notifier. Telegram messages go through pool; rdb may be nil
// to disable live updates.
func New(pool *worker.Pool, rdb *redis.Client, send SendFunc, log *zap.Logger) *Notifier {
	if send == nil {
		send = SendTelegramMessage
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{pool: pool, rdb: rdb, send: send, log: log.Named("notify")}
}

func (n *Notifier) telegram(msg, chat string) {
	if n.pool == nil {
		return
	}
	queued := n.pool.TryExec(worker.TaskFunc(func() {
		if err := n.send(msg, chat); err != nil {
			n.log.Warn("telegram notice", zap.String("chat", chat), zap.Error(err))
		}
	}))
	if !queued {
		n.log.Warn("telegram notice dropped, queue full", zap.String("chat", chat))
	}
}

func (n *Notifier) AffiliateEnrolled(_ context.Context, a *styleswap.Affiliate) {
	msg := fmt.Sprintf("🤝 *New partner*\n%s\nName: %s\nEmail: %s\nCode: `%s`",
		styleswap.EscapeMarkdownV2(app.CurrentMessageTime()),
		styleswap.EscapeMarkdownV2(a.Name),
		styleswap.EscapeMarkdownV2(a.Email),
		a.ReferralCode,
	)
	n.telegram(msg, ChatAffiliate)
}

func (n *Notifier) PayoutRequested(_ context.Context, a *styleswap.Affiliate) {
	msg := fmt.Sprintf("💸 *Payout requested*\n%s\nPartner: %s \\(`%s`\\)\nEmail: %s\nBalance: ₹%s",
		styleswap.EscapeMarkdownV2(app.CurrentMessageTime()),
		styleswap.EscapeMarkdownV2(a.Name),
		a.ReferralCode,
		styleswap.EscapeMarkdownV2(a.Email),
		styleswap.EscapeMarkdownV2(a.Balance.StringFixed(2)),
	)
	n.telegram(msg, ChatFinance)
}

// CommissionAccrued publishes the new commission to the affiliate owner's
// live channel. Partners without a storefront account are skipped.
func (n *Notifier) CommissionAccrued(ctx context.Context, a *styleswap.Affiliate, c *styleswap.Commission) {
	if n.rdb == nil || a.UserId == nil {
		return
	}
	data, err := json.Marshal(styleswap.WsResponseData{
		Target:     styleswap.MessageTargetCommission,
		Affiliate:  a,
		Commission: c,
	})
	if err != nil {
		return
	}
	if err := n.rdb.Publish(ctx, styleswap.NotificationChannel(*a.UserId), data).Err(); err != nil {
		n.log.Warn("publish commission", zap.String("user_id", *a.UserId), zap.Error(err))
	}
}
