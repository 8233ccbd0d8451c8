// Package affiliate runs the partner program: enrollment, referral links,
// commission accrual and payouts.
package affiliate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dchest/uniuri"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"styleswap/internal/app"
	"styleswap/internal/monitoring"
	"styleswap/internal/styleswap"
)

const (
	codeLength   = 8
	codeAttempts = 5
)

var (
	codeChars          = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")
	partnerCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)
	hundred            = decimal.NewFromInt(100)
)

type Store interface {
	CreateAffiliate(ctx context.Context, affiliate *styleswap.Affiliate) error
	GetAffiliateByUser(ctx context.Context, userId string) (*styleswap.Affiliate, error)
	GetAffiliateByCode(ctx context.Context, code string) (*styleswap.Affiliate, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	ListAffiliates(ctx context.Context) ([]styleswap.Affiliate, error)
	ListCommissions(ctx context.Context, affiliateId string) ([]styleswap.Commission, error)
	RecordCommission(ctx context.Context, c *styleswap.Commission) (bool, error)
	MarkCommissionPaid(ctx context.Context, id string) (*styleswap.Commission, error)
}

// Notifier receives program events. Implementations must not block.
type Notifier interface {
	AffiliateEnrolled(ctx context.Context, affiliate *styleswap.Affiliate)
	CommissionAccrued(ctx context.Context, affiliate *styleswap.Affiliate, commission *styleswap.Commission)
	PayoutRequested(ctx context.Context, affiliate *styleswap.Affiliate)
}

type Enrollment struct {
	UserId   string
	FullName string
	Email    string
}

// Partner is an affiliate added by an admin with a chosen referral code.
type Partner struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	ReferralCode string `json:"referral_code"`
}

// Settlement is a completed payment that may carry a referral code.
type Settlement struct {
	TransactionId string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	ReferralCode  string          `json:"referral_code"`
}

type Listing struct {
	styleswap.Affiliate
	Link string `json:"link"`
}

type Service struct {
	store    Store
	notifier Notifier
	log      *zap.Logger
	newCode  func() string
}

func NewService(store Store, notifier Notifier, log *zap.Logger) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		notifier: notifier,
		log:      log.Named("affiliate"),
		newCode: func() string {
			return uniuri.NewLenChars(codeLength, codeChars)
		},
	}
}

// BuildLink returns the storefront URL that attributes purchases to code.
func BuildLink(origin, code string) string {
	return app.RemoveTrailingSlash(origin) + "/?ref=" + code
}

// CommissionFor returns pct percent of amount, rounded half-up to 2 places.
func CommissionFor(amount decimal.Decimal, pct int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(pct))).Div(hundred).Round(2)
}

func (s *Service) Enroll(ctx context.Context, e Enrollment) (*styleswap.Affiliate, error) {
	if e.UserId == "" {
		return nil, styleswap.NewValidationError("user_id", "Sign in to join the Partner Program")
	}
	_, err := s.store.GetAffiliateByUser(ctx, e.UserId)
	switch {
	case err == nil:
		return nil, styleswap.ErrDuplicateEnrollment
	case !errors.Is(err, styleswap.ErrNotFound):
		return nil, err
	}

	userId := e.UserId
	for attempt := 1; attempt <= codeAttempts; attempt++ {
		code := s.newCode()
		exists, err := s.store.ReferralCodeExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		affiliate := &styleswap.Affiliate{
			Id:           uuid.NewString(),
			UserId:       &userId,
			Name:         styleswap.DisplayName(e.FullName, e.Email),
			Email:        e.Email,
			ReferralCode: code,
			Balance:      decimal.Zero,
			TotalEarned:  decimal.Zero,
		}
		err = s.store.CreateAffiliate(ctx, affiliate)
		if errors.Is(err, styleswap.ErrReferralCodeTaken) {
			s.log.Debug("referral code claimed concurrently", zap.String("code", code), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			s.log.Error("enrollment failed", zap.String("user_id", userId), zap.Error(err))
			return nil, err
		}
		monitoring.AffiliatesEnrolledTotal.Inc()
		s.log.Info("affiliate enrolled", zap.String("user_id", userId), zap.String("code", code))
		s.notifier.AffiliateEnrolled(ctx, affiliate)
		return affiliate, nil
	}
	return nil, fmt.Errorf("enroll after %d attempts: %w", codeAttempts, styleswap.ErrReferralCodeTaken)
}

func (s *Service) AddPartner(ctx context.Context, p Partner) (*styleswap.Affiliate, error) {
	name := strings.TrimSpace(p.Name)
	email := strings.TrimSpace(p.Email)
	code := strings.TrimSpace(p.ReferralCode)
	if name == "" {
		return nil, styleswap.NewValidationError("name", "Name is required")
	}
	if !strings.Contains(email, "@") {
		return nil, styleswap.NewValidationError("email", "A valid email is required")
	}
	if !partnerCodePattern.MatchString(code) {
		return nil, styleswap.NewValidationError("referral_code", "Referral code must be 3 to 32 letters, digits, '-' or '_'")
	}
	affiliate := &styleswap.Affiliate{
		Id:           uuid.NewString(),
		Name:         name,
		Email:        email,
		ReferralCode: code,
		Balance:      decimal.Zero,
		TotalEarned:  decimal.Zero,
	}
	err := s.store.CreateAffiliate(ctx, affiliate)
	if errors.Is(err, styleswap.ErrReferralCodeTaken) {
		return nil, styleswap.NewValidationError("referral_code", "Referral code is already in use")
	}
	if err != nil {
		return nil, err
	}
	monitoring.AffiliatesEnrolledTotal.Inc()
	s.log.Info("partner added", zap.String("code", code))
	s.notifier.AffiliateEnrolled(ctx, affiliate)
	return affiliate, nil
}

// Accrue credits the affiliate behind s.ReferralCode with its share of the
// settlement. It returns nil without error when nothing is owed. Delivering
// the same settlement twice returns the original commission.
func (s *Service) Accrue(ctx context.Context, st Settlement, cfg styleswap.AffiliateSettings) (*styleswap.Commission, error) {
	code := strings.TrimSpace(st.ReferralCode)
	if code == "" || !cfg.Enabled {
		monitoring.CommissionsTotal.WithLabelValues("skipped").Inc()
		return nil, nil
	}
	if st.TransactionId == "" {
		return nil, styleswap.NewValidationError("transaction_id", "Transaction reference is required")
	}
	if !st.Amount.IsPositive() {
		return nil, styleswap.NewValidationError("amount", "Settlement amount must be positive")
	}

	affiliate, err := s.store.GetAffiliateByCode(ctx, code)
	if err != nil {
		if errors.Is(err, styleswap.ErrNotFound) {
			monitoring.CommissionsTotal.WithLabelValues("unknown_code").Inc()
			s.log.Warn("settlement references unknown referral code",
				zap.String("code", code), zap.String("transaction_id", st.TransactionId))
		}
		return nil, err
	}

	commission := &styleswap.Commission{
		Id:            uuid.NewString(),
		AffiliateId:   affiliate.Id,
		TransactionId: st.TransactionId,
		Amount:        CommissionFor(st.Amount, cfg.DefaultCommissionPercentage),
		Percentage:    cfg.DefaultCommissionPercentage,
		Status:        styleswap.CommissionPending,
	}
	created, err := s.store.RecordCommission(ctx, commission)
	if err != nil {
		monitoring.CommissionsTotal.WithLabelValues("failed").Inc()
		s.log.Error("commission accrual failed",
			zap.String("affiliate_id", affiliate.Id), zap.String("transaction_id", st.TransactionId), zap.Error(err))
		return nil, err
	}
	if !created {
		monitoring.CommissionsTotal.WithLabelValues("duplicate").Inc()
		return commission, nil
	}

	monitoring.CommissionsTotal.WithLabelValues("created").Inc()
	amount, _ := commission.Amount.Float64()
	monitoring.CommissionAmountTotal.Add(amount)
	s.log.Info("commission accrued",
		zap.String("affiliate_id", affiliate.Id),
		zap.String("transaction_id", st.TransactionId),
		zap.String("amount", commission.Amount.StringFixed(2)),
		zap.Int("percentage", commission.Percentage))

	if updated, err := s.store.GetAffiliateByCode(ctx, code); err == nil {
		s.notifier.CommissionAccrued(ctx, updated, commission)
	}
	return commission, nil
}

// MarkPaid settles a pending commission and deducts it from the balance owed.
func (s *Service) MarkPaid(ctx context.Context, commissionId string) (*styleswap.Commission, error) {
	commission, err := s.store.MarkCommissionPaid(ctx, commissionId)
	if err != nil {
		return nil, err
	}
	s.log.Info("commission paid", zap.String("commission_id", commissionId),
		zap.String("amount", commission.Amount.StringFixed(2)))
	return commission, nil
}

func (s *Service) Get(ctx context.Context, userId string) (*styleswap.Affiliate, error) {
	return s.store.GetAffiliateByUser(ctx, userId)
}

func (s *Service) Commissions(ctx context.Context, userId string) ([]styleswap.Commission, error) {
	affiliate, err := s.store.GetAffiliateByUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	return s.store.ListCommissions(ctx, affiliate.Id)
}

func (s *Service) Dashboard(ctx context.Context, userId, origin string) (*styleswap.Dashboard, error) {
	affiliate, err := s.store.GetAffiliateByUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	commissions, err := s.store.ListCommissions(ctx, affiliate.Id)
	if err != nil {
		return nil, err
	}
	return &styleswap.Dashboard{
		Affiliate:   *affiliate,
		Link:        BuildLink(origin, affiliate.ReferralCode),
		Commissions: commissions,
		Stats:       styleswap.GetAffiliateStats(*affiliate, commissions),
	}, nil
}

// List returns every affiliate, newest first, with its referral link.
func (s *Service) List(ctx context.Context, origin string) ([]Listing, error) {
	affiliates, err := s.store.ListAffiliates(ctx)
	if err != nil {
		return nil, err
	}
	listings := make([]Listing, 0, len(affiliates))
	for _, a := range affiliates {
		listings = append(listings, Listing{Affiliate: a, Link: BuildLink(origin, a.ReferralCode)})
	}
	return listings, nil
}

// RequestPayout asks the finance team to pay out the affiliate's balance.
func (s *Service) RequestPayout(ctx context.Context, userId string) (*styleswap.Affiliate, error) {
	affiliate, err := s.store.GetAffiliateByUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if !affiliate.Balance.IsPositive() {
		return nil, styleswap.NewValidationError("balance", "No funds available for payout yet")
	}
	s.log.Info("payout requested", zap.String("affiliate_id", affiliate.Id),
		zap.String("balance", affiliate.Balance.StringFixed(2)))
	s.notifier.PayoutRequested(ctx, affiliate)
	return affiliate, nil
}

type nopNotifier struct{}

func (nopNotifier) AffiliateEnrolled(context.Context, *styleswap.Affiliate) {}

func (nopNotifier) CommissionAccrued(context.Context, *styleswap.Affiliate, *styleswap.Commission) {}

func (nopNotifier) PayoutRequested(context.Context, *styleswap.Affiliate) {}
