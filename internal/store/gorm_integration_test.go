package store

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"styleswap/internal/styleswap"
)

// Runs against a disposable database named by TEST_POSTGRES_DSN.
func newIntegrationStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	db, err := styleswap.OpenDb(dsn)
	require.NoError(t, err)
	return NewGormStore(db)
}

func newIntegrationAffiliate(t *testing.T, s *GormStore) *styleswap.Affiliate {
	t.Helper()
	userId := uuid.NewString()
	affiliate := &styleswap.Affiliate{
		Id:           uuid.NewString(),
		UserId:       &userId,
		Name:         "Integration",
		Email:        userId + "@example.com",
		ReferralCode: uuid.NewString()[:8],
	}
	require.NoError(t, s.CreateAffiliate(context.Background(), affiliate))
	return affiliate
}

func TestIntegrationConcurrentCommissions(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	affiliate := newIntegrationAffiliate(t, s)

	var wg sync.WaitGroup
	for _, amount := range []string{"100", "50"} {
		wg.Add(1)
		go func(amount string) {
			defer wg.Done()
			_, err := s.RecordCommission(ctx, &styleswap.Commission{
				Id:            uuid.NewString(),
				AffiliateId:   affiliate.Id,
				TransactionId: uuid.NewString(),
				Amount:        decimal.RequireFromString(amount),
				Percentage:    10,
				Status:        styleswap.CommissionPending,
			})
			assert.NoError(t, err)
		}(amount)
	}
	wg.Wait()

	stored, err := s.GetAffiliateByUser(ctx, *affiliate.UserId)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.NewFromInt(150)), stored.Balance.String())
	assert.True(t, stored.TotalEarned.Equal(decimal.NewFromInt(150)), stored.TotalEarned.String())
}

func TestIntegrationCommissionRedelivery(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	affiliate := newIntegrationAffiliate(t, s)
	txId := uuid.NewString()

	for i := 0; i < 2; i++ {
		created, err := s.RecordCommission(ctx, &styleswap.Commission{
			Id:            uuid.NewString(),
			AffiliateId:   affiliate.Id,
			TransactionId: txId,
			Amount:        decimal.RequireFromString("9.99"),
			Percentage:    10,
			Status:        styleswap.CommissionPending,
		})
		require.NoError(t, err)
		assert.Equal(t, i == 0, created)
	}

	stored, err := s.GetAffiliateByCode(ctx, affiliate.ReferralCode)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.RequireFromString("9.99")))
}

func TestIntegrationAffiliateUniqueness(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	affiliate := newIntegrationAffiliate(t, s)

	again := *affiliate
	again.Id = uuid.NewString()
	again.ReferralCode = uuid.NewString()[:8]
	assert.ErrorIs(t, s.CreateAffiliate(ctx, &again), styleswap.ErrDuplicateEnrollment)

	otherUser := uuid.NewString()
	clash := styleswap.Affiliate{
		Id:           uuid.NewString(),
		UserId:       &otherUser,
		Name:         "Clash",
		ReferralCode: affiliate.ReferralCode,
	}
	assert.ErrorIs(t, s.CreateAffiliate(ctx, &clash), styleswap.ErrReferralCodeTaken)
}

func TestIntegrationBonusOnce(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	id := uuid.NewString()
	_, err := s.EnsureAccount(ctx, &styleswap.Account{Id: id, Email: id + "@example.com"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan bool, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted, _, err := s.GrantBonus(ctx, id, styleswap.SignupBonusCredits)
			assert.NoError(t, err)
			results <- granted
		}()
	}
	wg.Wait()
	close(results)

	grants := 0
	for granted := range results {
		if granted {
			grants++
		}
	}
	assert.Equal(t, 1, grants)
	account, err := s.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(styleswap.SignupBonusCredits), account.Credits)
}

func TestIntegrationSettleOutOfOrder(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	paymentId := "pay_" + uuid.NewString()[:12]
	order := &styleswap.Transaction{
		Id:                uuid.NewString(),
		RazorpayPaymentId: paymentId,
		UserEmail:         "buyer@example.com",
		Amount:            decimal.NewFromInt(100000),
		Items:             []string{"look-1"},
		Status:            styleswap.PaymentAuthorized,
		RenderStatus:      styleswap.RenderPending,
	}
	require.NoError(t, s.CreateTransaction(ctx, order))

	settle := func(status string, amount decimal.Decimal) *styleswap.Transaction {
		settled, err := s.SettleTransaction(ctx, &styleswap.Transaction{
			Id:                uuid.NewString(),
			RazorpayPaymentId: paymentId,
			UserEmail:         "buyer@example.com",
			Amount:            amount,
			Items:             []string{},
			Status:            status,
			RenderStatus:      styleswap.RenderPending,
		})
		require.NoError(t, err)
		return settled
	}

	settled := settle(styleswap.PaymentCaptured, decimal.NewFromInt(1))
	assert.Equal(t, styleswap.PaymentCaptured, settled.Status)
	assert.True(t, decimal.NewFromInt(1).Equal(settled.Amount))
	assert.Equal(t, order.Id, settled.Id)

	assert.Equal(t, styleswap.PaymentCaptured, settle(styleswap.PaymentAuthorized, decimal.Zero).Status)
	assert.Equal(t, styleswap.PaymentCaptured, settle(styleswap.PaymentFailed, decimal.Zero).Status)
	assert.Equal(t, styleswap.PaymentRefunded, settle(styleswap.PaymentRefunded, decimal.Zero).Status)

	replayed := settle(styleswap.PaymentCaptured, decimal.NewFromInt(5))
	assert.Equal(t, styleswap.PaymentRefunded, replayed.Status)
	assert.True(t, decimal.NewFromInt(1).Equal(replayed.Amount))
}
