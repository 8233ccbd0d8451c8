package affiliate

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"styleswap/internal/store"
	"styleswap/internal/styleswap"
)

var enabled = styleswap.AffiliateSettings{Enabled: true, DefaultCommissionPercentage: 10}

type recordingNotifier struct {
	mu       sync.Mutex
	enrolled []string
	accrued  []string
	payouts  []string
}

func (n *recordingNotifier) AffiliateEnrolled(_ context.Context, a *styleswap.Affiliate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enrolled = append(n.enrolled, a.ReferralCode)
}

func (n *recordingNotifier) CommissionAccrued(_ context.Context, a *styleswap.Affiliate, c *styleswap.Commission) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accrued = append(n.accrued, c.TransactionId)
}

func (n *recordingNotifier) PayoutRequested(_ context.Context, a *styleswap.Affiliate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payouts = append(n.payouts, a.Id)
}

func newTestService(t *testing.T) (*Service, *store.MockStore, *recordingNotifier) {
	t.Helper()
	repo := store.NewMockStore()
	notifier := &recordingNotifier{}
	return NewService(repo, notifier, zap.NewNop()), repo, notifier
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuildLink(t *testing.T) {
	tests := []struct {
		origin string
		code   string
		want   string
	}{
		{"https://example.com", "ABC123", "https://example.com/?ref=ABC123"},
		{"https://example.com/", "ABC123", "https://example.com/?ref=ABC123"},
		{"http://localhost:5173", "x_y-z", "http://localhost:5173/?ref=x_y-z"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BuildLink(tt.origin, tt.code))
		assert.Equal(t, BuildLink(tt.origin, tt.code), BuildLink(tt.origin, tt.code))
	}
}

func TestCommissionFor(t *testing.T) {
	tests := []struct {
		amount string
		pct    int
		want   string
	}{
		{"100", 10, "10"},
		{"199.99", 15, "30"},
		{"0.05", 10, "0.01"},
		{"0.04", 10, "0"},
		{"1234.56", 100, "1234.56"},
		{"49.90", 0, "0"},
	}
	for _, tt := range tests {
		got := CommissionFor(dec(tt.amount), tt.pct)
		assert.True(t, got.Equal(dec(tt.want)), "%s at %d%%: got %s", tt.amount, tt.pct, got)
	}
}

func TestEnroll(t *testing.T) {
	svc, _, notifier := newTestService(t)

	affiliate, err := svc.Enroll(context.Background(), Enrollment{UserId: "user-1", Email: "asha@example.com"})

	require.NoError(t, err)
	assert.Equal(t, "asha", affiliate.Name)
	assert.Equal(t, "asha@example.com", affiliate.Email)
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9]{8}$`), affiliate.ReferralCode)
	assert.True(t, affiliate.Balance.IsZero())
	assert.True(t, affiliate.TotalEarned.IsZero())
	require.NotNil(t, affiliate.UserId)
	assert.Equal(t, "user-1", *affiliate.UserId)
	assert.Equal(t, []string{affiliate.ReferralCode}, notifier.enrolled)
}

func TestEnrollDuplicate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Enroll(ctx, Enrollment{UserId: "user-1", FullName: "Asha", Email: "asha@example.com"})
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, Enrollment{UserId: "user-1", FullName: "Asha", Email: "asha@example.com"})
	assert.ErrorIs(t, err, styleswap.ErrDuplicateEnrollment)
}

func TestEnrollPersistenceFailure(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	repo.Err = errors.New("disk full")

	_, err := svc.Enroll(context.Background(), Enrollment{UserId: "user-1", Email: "asha@example.com"})

	assert.ErrorIs(t, err, styleswap.ErrPersistence)
	assert.Empty(t, notifier.enrolled)
}

// racingStore rejects the first insert as if another enrollment claimed the code.
type racingStore struct {
	*store.MockStore
	raced bool
}

func (r *racingStore) CreateAffiliate(ctx context.Context, a *styleswap.Affiliate) error {
	if !r.raced {
		r.raced = true
		return styleswap.ErrReferralCodeTaken
	}
	return r.MockStore.CreateAffiliate(ctx, a)
}

func TestEnrollRetriesTakenCode(t *testing.T) {
	repo := &racingStore{MockStore: store.NewMockStore()}
	svc := NewService(repo, nil, zap.NewNop())
	codes := []string{"AAAAAAAA", "BBBBBBBB"}
	svc.newCode = func() string {
		code := codes[0]
		codes = codes[1:]
		return code
	}

	affiliate, err := svc.Enroll(context.Background(), Enrollment{UserId: "user-1", Email: "a@example.com"})

	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB", affiliate.ReferralCode)
}

func TestEnrollSkipsExistingCode(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	svc.newCode = func() string { return "SAMECODE" }

	_, err := svc.Enroll(ctx, Enrollment{UserId: "user-1", Email: "a@example.com"})
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, Enrollment{UserId: "user-2", Email: "b@example.com"})
	assert.ErrorIs(t, err, styleswap.ErrReferralCodeTaken)
}

func TestAddPartner(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	affiliate, err := svc.AddPartner(ctx, Partner{Name: "Studio K", Email: "k@example.com", ReferralCode: "STUDIO-K"})
	require.NoError(t, err)
	assert.Nil(t, affiliate.UserId)
	assert.Equal(t, "STUDIO-K", affiliate.ReferralCode)

	_, err = svc.AddPartner(ctx, Partner{Name: "Other", Email: "o@example.com", ReferralCode: "STUDIO-K"})
	var verr *styleswap.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "referral_code", verr.Field)

	_, err = svc.AddPartner(ctx, Partner{Name: "Other", Email: "o@example.com", ReferralCode: "a b"})
	assert.ErrorIs(t, err, styleswap.ErrValidation)

	_, err = svc.AddPartner(ctx, Partner{Email: "o@example.com", ReferralCode: "OTHER"})
	assert.ErrorIs(t, err, styleswap.ErrValidation)
}

func enrolled(t *testing.T, svc *Service, userId string) *styleswap.Affiliate {
	t.Helper()
	affiliate, err := svc.Enroll(context.Background(), Enrollment{UserId: userId, Email: userId + "@example.com"})
	require.NoError(t, err)
	return affiliate
}

func TestAccrueSkipped(t *testing.T) {
	svc, _, _ := newTestService(t)
	affiliate := enrolled(t, svc, "user-1")

	c, err := svc.Accrue(context.Background(), Settlement{TransactionId: "pay_1", Amount: dec("100")}, enabled)
	assert.NoError(t, err)
	assert.Nil(t, c)

	disabled := styleswap.AffiliateSettings{Enabled: false, DefaultCommissionPercentage: 10}
	c, err = svc.Accrue(context.Background(), Settlement{TransactionId: "pay_2", Amount: dec("100"), ReferralCode: affiliate.ReferralCode}, disabled)
	assert.NoError(t, err)
	assert.Nil(t, c)

	stored, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, stored.Balance.IsZero())
}

func TestAccrueUnknownCode(t *testing.T) {
	svc, _, notifier := newTestService(t)

	c, err := svc.Accrue(context.Background(), Settlement{TransactionId: "pay_1", Amount: dec("100"), ReferralCode: "NOPE"}, enabled)

	assert.ErrorIs(t, err, styleswap.ErrNotFound)
	assert.Nil(t, c)
	assert.Empty(t, notifier.accrued)
}

func TestAccrueRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _ := newTestService(t)
	affiliate := enrolled(t, svc, "user-1")

	for _, amount := range []string{"0", "-5"} {
		_, err := svc.Accrue(context.Background(), Settlement{TransactionId: "pay_1", Amount: dec(amount), ReferralCode: affiliate.ReferralCode}, enabled)
		assert.ErrorIs(t, err, styleswap.ErrValidation)
	}
}

func TestAccrueCreditsAffiliate(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()
	affiliate := enrolled(t, svc, "user-1")

	amounts := []string{"499", "199.99", "0.05"}
	want := decimal.Zero
	for i, amount := range amounts {
		c, err := svc.Accrue(ctx, Settlement{
			TransactionId: []string{"pay_1", "pay_2", "pay_3"}[i],
			Amount:        dec(amount),
			ReferralCode:  affiliate.ReferralCode,
		}, enabled)
		require.NoError(t, err)
		assert.Equal(t, styleswap.CommissionPending, c.Status)
		assert.Equal(t, 10, c.Percentage)
		want = want.Add(c.Amount)
	}

	stored, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, stored.TotalEarned.Equal(dec("69.91")), stored.TotalEarned.String())
	assert.True(t, stored.TotalEarned.Equal(want))
	assert.True(t, stored.Balance.Equal(want))
	assert.Len(t, notifier.accrued, 3)
}

func TestAccrueRedeliveryIsIdempotent(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()
	affiliate := enrolled(t, svc, "user-1")
	settlement := Settlement{TransactionId: "pay_1", Amount: dec("100"), ReferralCode: affiliate.ReferralCode}

	first, err := svc.Accrue(ctx, settlement, enabled)
	require.NoError(t, err)
	second, err := svc.Accrue(ctx, settlement, enabled)
	require.NoError(t, err)

	assert.Equal(t, first.Id, second.Id)
	stored, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(dec("10")))
	assert.Len(t, notifier.accrued, 1)
}

func TestAccruePercentageFrozen(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	affiliate := enrolled(t, svc, "user-1")

	_, err := svc.Accrue(ctx, Settlement{TransactionId: "pay_1", Amount: dec("100"), ReferralCode: affiliate.ReferralCode}, enabled)
	require.NoError(t, err)
	raised := styleswap.AffiliateSettings{Enabled: true, DefaultCommissionPercentage: 20}
	_, err = svc.Accrue(ctx, Settlement{TransactionId: "pay_2", Amount: dec("100"), ReferralCode: affiliate.ReferralCode}, raised)
	require.NoError(t, err)

	commissions, err := svc.Commissions(ctx, "user-1")
	require.NoError(t, err)
	byTx := map[string]styleswap.Commission{}
	for _, c := range commissions {
		byTx[c.TransactionId] = c
	}
	assert.Equal(t, 10, byTx["pay_1"].Percentage)
	assert.True(t, byTx["pay_1"].Amount.Equal(dec("10")))
	assert.Equal(t, 20, byTx["pay_2"].Percentage)
	assert.True(t, byTx["pay_2"].Amount.Equal(dec("20")))
}

func TestAccrueConcurrent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	affiliate := enrolled(t, svc, "user-1")
	full := styleswap.AffiliateSettings{Enabled: true, DefaultCommissionPercentage: 100}

	var wg sync.WaitGroup
	for i, amount := range []string{"100", "50"} {
		wg.Add(1)
		go func(txId, amount string) {
			defer wg.Done()
			_, err := svc.Accrue(ctx, Settlement{TransactionId: txId, Amount: dec(amount), ReferralCode: affiliate.ReferralCode}, full)
			assert.NoError(t, err)
		}([]string{"pay_a", "pay_b"}[i], amount)
	}
	wg.Wait()

	stored, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(dec("150")), stored.Balance.String())
}

func TestMarkPaid(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	affiliate := enrolled(t, svc, "user-1")
	c, err := svc.Accrue(ctx, Settlement{TransactionId: "pay_1", Amount: dec("250"), ReferralCode: affiliate.ReferralCode}, enabled)
	require.NoError(t, err)

	paid, err := svc.MarkPaid(ctx, c.Id)
	require.NoError(t, err)
	assert.Equal(t, styleswap.CommissionPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	stored, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, stored.Balance.IsZero())
	assert.True(t, stored.TotalEarned.Equal(dec("25")))

	_, err = svc.MarkPaid(ctx, c.Id)
	assert.ErrorIs(t, err, styleswap.ErrValidation)
	_, err = svc.MarkPaid(ctx, "missing")
	assert.ErrorIs(t, err, styleswap.ErrNotFound)
}

func TestDashboard(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	affiliate := enrolled(t, svc, "user-1")
	first, err := svc.Accrue(ctx, Settlement{TransactionId: "pay_1", Amount: dec("100"), ReferralCode: affiliate.ReferralCode}, enabled)
	require.NoError(t, err)
	_, err = svc.Accrue(ctx, Settlement{TransactionId: "pay_2", Amount: dec("300"), ReferralCode: affiliate.ReferralCode}, enabled)
	require.NoError(t, err)
	_, err = svc.MarkPaid(ctx, first.Id)
	require.NoError(t, err)

	dashboard, err := svc.Dashboard(ctx, "user-1", "https://styleswap.example/")

	require.NoError(t, err)
	assert.Equal(t, "https://styleswap.example/?ref="+affiliate.ReferralCode, dashboard.Link)
	require.Len(t, dashboard.Commissions, 2)
	assert.Equal(t, "pay_2", dashboard.Commissions[0].TransactionId)
	assert.Equal(t, 2, dashboard.Stats.TotalSales)
	assert.True(t, dashboard.Stats.Balance.Equal(dec("30")))
	assert.True(t, dashboard.Stats.TotalEarned.Equal(dec("40")))
	assert.True(t, dashboard.Stats.Pending.Equal(dec("30")))
	assert.True(t, dashboard.Stats.Paid.Equal(dec("10")))

	_, err = svc.Dashboard(ctx, "user-2", "https://styleswap.example")
	assert.ErrorIs(t, err, styleswap.ErrNotFound)
}

func TestList(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	enrolled(t, svc, "user-1")
	second := enrolled(t, svc, "user-2")

	listings, err := svc.List(ctx, "https://styleswap.example")

	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, second.Id, listings[0].Id)
	assert.Equal(t, BuildLink("https://styleswap.example", second.ReferralCode), listings[0].Link)
}

func TestRequestPayout(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()
	affiliate := enrolled(t, svc, "user-1")

	_, err := svc.RequestPayout(ctx, "user-1")
	assert.ErrorIs(t, err, styleswap.ErrValidation)

	_, err = svc.Accrue(ctx, Settlement{TransactionId: "pay_1", Amount: dec("100"), ReferralCode: affiliate.ReferralCode}, enabled)
	require.NoError(t, err)
	_, err = svc.RequestPayout(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{affiliate.Id}, notifier.payouts)
}
