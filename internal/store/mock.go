package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"styleswap/internal/styleswap"
)

// MockStore is an in-memory store for tests. It honours the same uniqueness
// and atomicity rules as GormStore.
type MockStore struct {
	mu           sync.RWMutex
	accounts     map[string]*styleswap.Account
	creditTxs    []styleswap.CreditTx
	affiliates   map[string]*styleswap.Affiliate
	commissions  map[string]*styleswap.Commission
	settings     *styleswap.Settings
	transactions map[string]*styleswap.Transaction

	// Err, when set, is returned by every write.
	Err error
}

func NewMockStore() *MockStore {
	return &MockStore{
		accounts:     make(map[string]*styleswap.Account),
		affiliates:   make(map[string]*styleswap.Affiliate),
		commissions:  make(map[string]*styleswap.Commission),
		transactions: make(map[string]*styleswap.Transaction),
	}
}

func (m *MockStore) failWrite(op string) error {
	if m.Err != nil {
		return styleswap.Persistence(op, m.Err)
	}
	return nil
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, styleswap.ErrNotFound)
}

func (m *MockStore) EnsureAccount(ctx context.Context, account *styleswap.Account) (*styleswap.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stored, ok := m.accounts[account.Id]; ok {
		copied := *stored
		return &copied, nil
	}
	if err := m.failWrite("ensure account"); err != nil {
		return nil, err
	}
	stored := *account
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	m.accounts[stored.Id] = &stored
	copied := stored
	return &copied, nil
}

func (m *MockStore) GetAccount(ctx context.Context, id string) (*styleswap.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.accounts[id]
	if !ok {
		return nil, notFound("get account")
	}
	copied := *stored
	return &copied, nil
}

// SetCredits overwrites an account balance, standing in for credit purchases and spends.
func (m *MockStore) SetCredits(id string, credits int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.accounts[id]; ok {
		stored.Credits = credits
	}
}

func (m *MockStore) GrantBonus(ctx context.Context, accountId string, credits int64) (bool, *styleswap.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.accounts[accountId]
	if !ok {
		return false, nil, notFound("grant bonus")
	}
	if err := m.failWrite("grant bonus"); err != nil {
		return false, nil, err
	}
	granted := false
	if stored.Credits == 0 && !stored.BonusGranted {
		stored.Credits += credits
		stored.BonusGranted = true
		m.creditTxs = append(m.creditTxs, styleswap.CreditTx{
			CreatedAt: time.Now(),
			Txid:      uint(len(m.creditTxs) + 1),
			AccountId: accountId,
			Type:      styleswap.CreditTxBonus,
			Amount:    credits,
			Message:   "signup bonus",
		})
		granted = true
	}
	copied := *stored
	return granted, &copied, nil
}

// CreditTxs returns the ledger entries of one account.
func (m *MockStore) CreditTxs(accountId string) []styleswap.CreditTx {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []styleswap.CreditTx
	for _, tx := range m.creditTxs {
		if tx.AccountId == accountId {
			result = append(result, tx)
		}
	}
	return result
}

func (m *MockStore) CreateAffiliate(ctx context.Context, affiliate *styleswap.Affiliate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failWrite("create affiliate"); err != nil {
		return err
	}
	for _, a := range m.affiliates {
		if affiliate.UserId != nil && a.UserId != nil && *a.UserId == *affiliate.UserId {
			return fmt.Errorf("create affiliate: %w", styleswap.ErrDuplicateEnrollment)
		}
		if a.ReferralCode == affiliate.ReferralCode {
			return fmt.Errorf("create affiliate: %w", styleswap.ErrReferralCodeTaken)
		}
	}
	if affiliate.Id == "" {
		affiliate.Id = uuid.NewString()
	}
	// Keeps created_at strictly increasing so ordering is deterministic.
	affiliate.CreatedAt = time.Now().Add(time.Duration(len(m.affiliates)) * time.Microsecond)
	stored := *affiliate
	m.affiliates[stored.Id] = &stored
	return nil
}

func (m *MockStore) GetAffiliateByUser(ctx context.Context, userId string) (*styleswap.Affiliate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.affiliates {
		if a.UserId != nil && *a.UserId == userId {
			copied := *a
			return &copied, nil
		}
	}
	return nil, notFound("get affiliate")
}

func (m *MockStore) GetAffiliateByCode(ctx context.Context, code string) (*styleswap.Affiliate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.affiliates {
		if a.ReferralCode == code {
			copied := *a
			return &copied, nil
		}
	}
	return nil, notFound("get affiliate by code")
}

func (m *MockStore) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := m.GetAffiliateByCode(ctx, code)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (m *MockStore) ListAffiliates(ctx context.Context) ([]styleswap.Affiliate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]styleswap.Affiliate, 0, len(m.affiliates))
	for _, a := range m.affiliates {
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockStore) ListCommissions(ctx context.Context, affiliateId string) ([]styleswap.Commission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]styleswap.Commission, 0)
	for _, c := range m.commissions {
		if c.AffiliateId == affiliateId {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockStore) RecordCommission(ctx context.Context, c *styleswap.Commission) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.commissions {
		if existing.AffiliateId == c.AffiliateId && existing.TransactionId == c.TransactionId {
			*c = *existing
			return false, nil
		}
	}
	if err := m.failWrite("record commission"); err != nil {
		return false, err
	}
	affiliate, ok := m.affiliates[c.AffiliateId]
	if !ok {
		return false, notFound("record commission")
	}
	if c.Id == "" {
		c.Id = uuid.NewString()
	}
	c.CreatedAt = time.Now().Add(time.Duration(len(m.commissions)) * time.Microsecond)
	stored := *c
	m.commissions[stored.Id] = &stored
	affiliate.Balance = affiliate.Balance.Add(c.Amount)
	affiliate.TotalEarned = affiliate.TotalEarned.Add(c.Amount)
	return true, nil
}

func (m *MockStore) MarkCommissionPaid(ctx context.Context, id string) (*styleswap.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.commissions[id]
	if !ok {
		return nil, notFound("mark commission paid")
	}
	if c.Status != styleswap.CommissionPending {
		return nil, styleswap.NewValidationError("status", "Commission is already paid")
	}
	if err := m.failWrite("mark commission paid"); err != nil {
		return nil, err
	}
	now := time.Now()
	c.Status = styleswap.CommissionPaid
	c.PaidAt = &now
	if affiliate, ok := m.affiliates[c.AffiliateId]; ok {
		affiliate.Balance = affiliate.Balance.Sub(c.Amount)
	}
	copied := *c
	return &copied, nil
}

func (m *MockStore) GetSettings(ctx context.Context) (*styleswap.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.settings == nil {
		return nil, notFound("get settings")
	}
	copied := *m.settings
	return &copied, nil
}

func (m *MockStore) SaveSettings(ctx context.Context, settings *styleswap.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failWrite("save settings"); err != nil {
		return err
	}
	settings.Id = styleswap.SettingsId
	stored := *settings
	m.settings = &stored
	return nil
}

func (m *MockStore) CreateTransaction(ctx context.Context, t *styleswap.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failWrite("create transaction"); err != nil {
		return err
	}
	if _, ok := m.transactions[t.RazorpayPaymentId]; ok {
		return styleswap.NewValidationError("razorpay_payment_id", "Order is already recorded")
	}
	if t.Id == "" {
		t.Id = uuid.NewString()
	}
	t.CreatedAt = time.Now().Add(time.Duration(len(m.transactions)) * time.Microsecond)
	t.UpdatedAt = t.CreatedAt
	stored := *t
	m.transactions[stored.RazorpayPaymentId] = &stored
	return nil
}

func (m *MockStore) SettleTransaction(ctx context.Context, t *styleswap.Transaction) (*styleswap.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failWrite("settle transaction"); err != nil {
		return nil, err
	}
	stored, ok := m.transactions[t.RazorpayPaymentId]
	if ok {
		if styleswap.CanAdvancePayment(stored.Status, t.Status) {
			stored.Status = t.Status
			if t.Status == styleswap.PaymentCaptured {
				stored.Amount = t.Amount
			}
			stored.UpdatedAt = time.Now()
		}
	} else {
		copied := *t
		if copied.Id == "" {
			copied.Id = uuid.NewString()
		}
		copied.CreatedAt = time.Now()
		copied.UpdatedAt = copied.CreatedAt
		stored = &copied
		m.transactions[stored.RazorpayPaymentId] = stored
	}
	result := *stored
	return &result, nil
}

func (m *MockStore) ListTransactionsByEmail(ctx context.Context, email string) ([]styleswap.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]styleswap.Transaction, 0)
	for _, t := range m.transactions {
		if t.UserEmail == email {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
