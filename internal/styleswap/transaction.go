package styleswap

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	PaymentAuthorized      = "authorized"
	PaymentCaptured        = "captured"
	PaymentFailed          = "failed"
	PaymentRefundRequested = "refund_requested"
	PaymentRefunded        = "refunded"

	RenderPending   = "pending"
	RenderCompleted = "completed"
	RenderFailed    = "failed"
)

// Transaction is a storefront order paid through Razorpay
type Transaction struct {
	Id                string          `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt         time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt         time.Time       `json:"updated_at"`
	RazorpayPaymentId string          `json:"razorpay_payment_id" gorm:"uniqueIndex;size:64;not null"`
	UserEmail         string          `json:"user_email" gorm:"index;not null"`
	Amount            decimal.Decimal `json:"amount" gorm:"type:numeric(20,2);not null"`
	Items             pq.StringArray  `json:"items" gorm:"type:text[]"`
	Status            string          `json:"status" gorm:"size:24;not null"`
	RenderStatus      string          `json:"render_status" gorm:"size:16;not null"`
	ReferralCode      string          `json:"referral_code,omitempty" gorm:"size:32"`
}

// paymentSources lists the statuses each payment status may be reached from.
// Gateway events can arrive late or be replayed; anything else is ignored.
var paymentSources = map[string][]string{
	PaymentCaptured:        {PaymentAuthorized},
	PaymentFailed:          {PaymentAuthorized},
	PaymentRefundRequested: {PaymentCaptured},
	PaymentRefunded:        {PaymentCaptured, PaymentRefundRequested},
}

// PaymentSources returns the statuses from which a payment may move to status.
func PaymentSources(status string) []string {
	return paymentSources[status]
}

func CanAdvancePayment(from, to string) bool {
	for _, source := range paymentSources[to] {
		if source == from {
			return true
		}
	}
	return false
}
