package notify

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"styleswap/internal/styleswap"
	"styleswap/internal/worker"
)

type sentMessage struct {
	msg  string
	chat string
}

func newRecordingNotifier(t *testing.T) (*Notifier, *worker.Pool, *[]sentMessage) {
	t.Helper()
	var mu sync.Mutex
	sent := []sentMessage{}
	pool := worker.NewPool(1, 8)
	send := func(msg, chat string) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, sentMessage{msg: msg, chat: chat})
		return nil
	}
	return New(pool, nil, send, zap.NewNop()), pool, &sent
}

func TestTelegramNotices(t *testing.T) {
	n, pool, sent := newRecordingNotifier(t)
	affiliate := &styleswap.Affiliate{
		Name:         "Asha K.",
		Email:        "asha@example.com",
		ReferralCode: "Ab3dE6gH",
		Balance:      decimal.RequireFromString("125.5"),
	}

	n.AffiliateEnrolled(context.Background(), affiliate)
	n.PayoutRequested(context.Background(), affiliate)
	pool.Close()
	pool.Wait()

	require.Len(t, *sent, 2)
	assert.Equal(t, ChatAffiliate, (*sent)[0].chat)
	assert.Contains(t, (*sent)[0].msg, "Asha K\\.")
	assert.Contains(t, (*sent)[0].msg, "`Ab3dE6gH`")
	assert.Equal(t, ChatFinance, (*sent)[1].chat)
	assert.True(t, strings.Contains((*sent)[1].msg, "125\\.50"))
}

func TestCommissionAccruedPublishes(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	n := New(nil, rdb, func(string, string) error { return nil }, zap.NewNop())
	userId := "user-1"
	affiliate := &styleswap.Affiliate{Id: "aff-1", UserId: &userId, ReferralCode: "CODE1234"}
	commission := &styleswap.Commission{Id: "c-1", AffiliateId: "aff-1", TransactionId: "pay_1", Status: styleswap.CommissionPending}
	data, err := json.Marshal(styleswap.WsResponseData{
		Target:     styleswap.MessageTargetCommission,
		Affiliate:  affiliate,
		Commission: commission,
	})
	require.NoError(t, err)
	mock.ExpectPublish("notification_ch@user-1", data).SetVal(1)

	n.CommissionAccrued(context.Background(), affiliate, commission)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommissionAccruedSkipsPartnerWithoutAccount(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	n := New(nil, rdb, nil, zap.NewNop())

	n.CommissionAccrued(context.Background(), &styleswap.Affiliate{Id: "aff-2"}, &styleswap.Commission{})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatId(t *testing.T) {
	t.Setenv("DEFAULT_CHAT_ID", "-100")
	t.Setenv("FINANCE_CHAT_ID", "-200")
	t.Setenv("AFFILIATE_CHAT_ID", "")

	id, err := chatId(ChatFinance)
	require.NoError(t, err)
	assert.Equal(t, int64(-200), id)

	id, err = chatId(ChatAffiliate)
	require.NoError(t, err)
	assert.Equal(t, int64(-100), id)
}
