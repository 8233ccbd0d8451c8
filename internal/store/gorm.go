// Package store persists accounts, affiliates, commissions, orders and
// settings in Postgres through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"styleswap/internal/styleswap"
)

const uniqueViolation = "23505"

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// translate maps driver errors onto the domain error kinds.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, styleswap.ErrValidation) || errors.Is(err, styleswap.ErrNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, styleswap.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "idx_affiliates_user_id":
			return fmt.Errorf("%s: %w", op, styleswap.ErrDuplicateEnrollment)
		case "idx_affiliates_referral_code":
			return fmt.Errorf("%s: %w", op, styleswap.ErrReferralCodeTaken)
		case "idx_transactions_razorpay_payment_id":
			return styleswap.NewValidationError("razorpay_payment_id", "Order is already recorded")
		}
	}
	return styleswap.Persistence(op, err)
}

func (s *GormStore) EnsureAccount(ctx context.Context, account *styleswap.Account) (*styleswap.Account, error) {
	db := s.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(account)
	if res.Error != nil {
		return nil, translate("ensure account", res.Error)
	}
	var stored styleswap.Account
	if err := db.First(&stored, "id = ?", account.Id).Error; err != nil {
		return nil, translate("ensure account", err)
	}
	return &stored, nil
}

func (s *GormStore) GetAccount(ctx context.Context, id string) (*styleswap.Account, error) {
	var account styleswap.Account
	if err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, translate("get account", err)
	}
	return &account, nil
}

// GrantBonus adds credits to an account that holds none and has never been
// granted the bonus. granted reports whether this call applied it.
func (s *GormStore) GrantBonus(ctx context.Context, accountId string, credits int64) (granted bool, account *styleswap.Account, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&styleswap.Account{}).
			Where("id = ? AND credits = 0 AND bonus_granted = ?", accountId, false).
			UpdateColumns(map[string]interface{}{
				"credits":       gorm.Expr("credits + ?", credits),
				"bonus_granted": true,
				"updated_at":    time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			granted = true
			bonus := styleswap.CreditTx{
				AccountId: accountId,
				Type:      styleswap.CreditTxBonus,
				Amount:    credits,
				Message:   "signup bonus",
			}
			if err := tx.Create(&bonus).Error; err != nil {
				return err
			}
		}
		account = &styleswap.Account{}
		return tx.First(account, "id = ?", accountId).Error
	})
	if err != nil {
		return false, nil, translate("grant bonus", err)
	}
	return granted, account, nil
}

func (s *GormStore) CreateAffiliate(ctx context.Context, affiliate *styleswap.Affiliate) error {
	return translate("create affiliate", s.db.WithContext(ctx).Create(affiliate).Error)
}

func (s *GormStore) GetAffiliateByUser(ctx context.Context, userId string) (*styleswap.Affiliate, error) {
	var affiliate styleswap.Affiliate
	if err := s.db.WithContext(ctx).First(&affiliate, "user_id = ?", userId).Error; err != nil {
		return nil, translate("get affiliate", err)
	}
	return &affiliate, nil
}

func (s *GormStore) GetAffiliateByCode(ctx context.Context, code string) (*styleswap.Affiliate, error) {
	var affiliate styleswap.Affiliate
	if err := s.db.WithContext(ctx).First(&affiliate, "referral_code = ?", code).Error; err != nil {
		return nil, translate("get affiliate by code", err)
	}
	return &affiliate, nil
}

func (s *GormStore) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&styleswap.Affiliate{}).Where("referral_code = ?", code).Count(&count).Error
	if err != nil {
		return false, translate("check referral code", err)
	}
	return count > 0, nil
}

func (s *GormStore) ListAffiliates(ctx context.Context) ([]styleswap.Affiliate, error) {
	var affiliates []styleswap.Affiliate
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&affiliates).Error; err != nil {
		return nil, translate("list affiliates", err)
	}
	return affiliates, nil
}

func (s *GormStore) ListCommissions(ctx context.Context, affiliateId string) ([]styleswap.Commission, error) {
	var commissions []styleswap.Commission
	err := s.db.WithContext(ctx).
		Where("affiliate_id = ?", affiliateId).
		Order("created_at desc").
		Find(&commissions).Error
	if err != nil {
		return nil, translate("list commissions", err)
	}
	return commissions, nil
}

// RecordCommission inserts the commission and credits the affiliate in one
// transaction. A commission already recorded for the same affiliate and
// transaction is loaded into c and created is false.
func (s *GormStore) RecordCommission(ctx context.Context, c *styleswap.Commission) (created bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "affiliate_id"}, {Name: "transaction_id"}},
			DoNothing: true,
		}).Create(c)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var existing styleswap.Commission
			err := tx.Where("affiliate_id = ? AND transaction_id = ?", c.AffiliateId, c.TransactionId).
				First(&existing).Error
			if err != nil {
				return err
			}
			*c = existing
			return nil
		}
		res = tx.Model(&styleswap.Affiliate{}).
			Where("id = ?", c.AffiliateId).
			UpdateColumns(map[string]interface{}{
				"balance":      gorm.Expr("balance + ?", c.Amount),
				"total_earned": gorm.Expr("total_earned + ?", c.Amount),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return gorm.ErrRecordNotFound
		}
		created = true
		return nil
	})
	if err != nil {
		return false, translate("record commission", err)
	}
	return created, nil
}

func (s *GormStore) MarkCommissionPaid(ctx context.Context, id string) (*styleswap.Commission, error) {
	var commission styleswap.Commission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&commission, "id = ?", id).Error; err != nil {
			return err
		}
		now := time.Now()
		res := tx.Model(&styleswap.Commission{}).
			Where("id = ? AND status = ?", id, styleswap.CommissionPending).
			UpdateColumns(map[string]interface{}{
				"status":  styleswap.CommissionPaid,
				"paid_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return styleswap.NewValidationError("status", "Commission is already paid")
		}
		res = tx.Model(&styleswap.Affiliate{}).
			Where("id = ?", commission.AffiliateId).
			UpdateColumn("balance", gorm.Expr("balance - ?", commission.Amount))
		if res.Error != nil {
			return res.Error
		}
		commission.Status = styleswap.CommissionPaid
		commission.PaidAt = &now
		return nil
	})
	if err != nil {
		return nil, translate("mark commission paid", err)
	}
	return &commission, nil
}

func (s *GormStore) GetSettings(ctx context.Context) (*styleswap.Settings, error) {
	var settings styleswap.Settings
	if err := s.db.WithContext(ctx).First(&settings, "id = ?", styleswap.SettingsId).Error; err != nil {
		return nil, translate("get settings", err)
	}
	return &settings, nil
}

func (s *GormStore) SaveSettings(ctx context.Context, settings *styleswap.Settings) error {
	settings.Id = styleswap.SettingsId
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(settings).Error
	return translate("save settings", err)
}

func (s *GormStore) CreateTransaction(ctx context.Context, t *styleswap.Transaction) error {
	return translate("create transaction", s.db.WithContext(ctx).Create(t).Error)
}

// SettleTransaction records the payment status reported by the payment
// provider, inserting t when no checkout row exists for its payment id. An
// existing row only moves forward (see styleswap.CanAdvancePayment); a capture
// also replaces the amount with the one the provider settled.
func (s *GormStore) SettleTransaction(ctx context.Context, t *styleswap.Transaction) (*styleswap.Transaction, error) {
	db := s.db.WithContext(ctx)
	err := db.Clauses(settleConflict(t.Status)).Create(t).Error
	if err != nil {
		return nil, translate("settle transaction", err)
	}
	var stored styleswap.Transaction
	if err := db.First(&stored, "razorpay_payment_id = ?", t.RazorpayPaymentId).Error; err != nil {
		return nil, translate("settle transaction", err)
	}
	return &stored, nil
}

func settleConflict(status string) clause.OnConflict {
	conflict := clause.OnConflict{Columns: []clause.Column{{Name: "razorpay_payment_id"}}}
	sources := styleswap.PaymentSources(status)
	if len(sources) == 0 {
		conflict.DoNothing = true
		return conflict
	}
	columns := []string{"status", "updated_at"}
	if status == styleswap.PaymentCaptured {
		columns = append(columns, "amount")
	}
	conflict.DoUpdates = clause.AssignmentColumns(columns)
	conflict.Where = clause.Where{Exprs: []clause.Expression{
		clause.Expr{SQL: `"transactions"."status" IN ?`, Vars: []interface{}{sources}},
	}}
	return conflict
}

func (s *GormStore) ListTransactionsByEmail(ctx context.Context, email string) ([]styleswap.Transaction, error) {
	var transactions []styleswap.Transaction
	err := s.db.WithContext(ctx).
		Where("user_email = ?", email).
		Order("created_at desc").
		Find(&transactions).Error
	if err != nil {
		return nil, translate("list transactions", err)
	}
	return transactions, nil
}
