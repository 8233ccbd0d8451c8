package styleswap

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CommissionPending = "pending"
	CommissionPaid    = "paid"
)

// Affiliate is a partner who earns commission on referred purchases.
// UserId is nil for partners added by an admin without a storefront account.
type Affiliate struct {
	Id           string          `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt    time.Time       `json:"created_at" gorm:"index"`
	UserId       *string         `json:"user_id,omitempty" gorm:"uniqueIndex:idx_affiliates_user_id;size:64"`
	Name         string          `json:"name" gorm:"not null"`
	Email        string          `json:"email"`
	ReferralCode string          `json:"referral_code" gorm:"uniqueIndex:idx_affiliates_referral_code;size:32;not null"`
	Balance      decimal.Decimal `json:"balance" gorm:"type:numeric(20,2);not null"`
	TotalEarned  decimal.Decimal `json:"total_earned" gorm:"type:numeric(20,2);not null"`
}

// Commission records the share of one settled transaction owed to an affiliate.
type Commission struct {
	Id            string          `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt     time.Time       `json:"created_at" gorm:"index"`
	AffiliateId   string          `json:"affiliate_id" gorm:"uniqueIndex:idx_commissions_source;size:36;not null"`
	TransactionId string          `json:"transaction_id" gorm:"uniqueIndex:idx_commissions_source;size:64;not null"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(20,2);not null"`
	Percentage    int             `json:"percentage" gorm:"not null"` // Frozen at creation
	Status        string          `json:"status" gorm:"size:16;index;not null"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
}

type AffiliateStats struct {
	Balance     decimal.Decimal `json:"balance"`
	TotalEarned decimal.Decimal `json:"total_earned"`
	TotalSales  int             `json:"total_sales"`
	Pending     decimal.Decimal `json:"pending"`
	Paid        decimal.Decimal `json:"paid"`
}
