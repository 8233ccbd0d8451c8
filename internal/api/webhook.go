package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"styleswap/internal/affiliate"
	"styleswap/internal/styleswap"
)

const SignatureHeader = "X-Razorpay-Signature"

type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity razorpayPayment `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				PaymentId string `json:"payment_id"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

type razorpayPayment struct {
	Id     string          `json:"id"`
	Amount int64           `json:"amount"` // paise
	Email  string          `json:"email"`
	Notes  json.RawMessage `json:"notes"`
}

// notes is an object when set and an empty array when not.
func (p razorpayPayment) note(key string) string {
	var notes map[string]string
	if err := json.Unmarshal(p.Notes, &notes); err != nil {
		return ""
	}
	return strings.TrimSpace(notes[key])
}

var eventStatus = map[string]string{
	"payment.authorized": styleswap.PaymentAuthorized,
	"payment.captured":   styleswap.PaymentCaptured,
	"payment.failed":     styleswap.PaymentFailed,
	"refund.processed":   styleswap.PaymentRefunded,
}

// VerifyRazorpaySignature checks the hex HMAC-SHA256 of the raw body.
func VerifyRazorpaySignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// RazorpayWebhook settles payments. A captured payment that carries a
// referral code is queued for commission accrual on the captured amount.
// Answering 503 when the queue is down makes Razorpay redeliver; accrual
// ignores repeated settlements.
// @Router /payments/razorpay/webhook [post]
func RazorpayWebhook(c *gin.Context) {
	app := c.MustGet("app").(*App)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if !VerifyRazorpaySignature(body, c.GetHeader(SignatureHeader), app.WebhookSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}
	var event razorpayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	status, ok := eventStatus[event.Event]
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	payment := event.Payload.Payment.Entity
	transaction := &styleswap.Transaction{
		Id:                uuid.NewString(),
		RazorpayPaymentId: payment.Id,
		UserEmail:         payment.Email,
		Amount:            decimal.New(payment.Amount, -2),
		Items:             []string{},
		Status:            status,
		RenderStatus:      styleswap.RenderPending,
		ReferralCode:      payment.note("referral_code"),
	}
	if status == styleswap.PaymentRefunded {
		transaction.RazorpayPaymentId = event.Payload.Refund.Entity.PaymentId
	}
	if transaction.RazorpayPaymentId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing payment id"})
		return
	}

	settled, err := app.Orders.SettleTransaction(c, transaction)
	if err != nil {
		respondError(c, err)
		return
	}
	if settled.Status == styleswap.PaymentCaptured && settled.ReferralCode != "" && app.Accruals != nil {
		st := affiliate.Settlement{
			TransactionId: settled.Id,
			Amount:        transaction.Amount,
			ReferralCode:  settled.ReferralCode,
		}
		if err := app.Accruals.EnqueueAccrual(c, st); err != nil {
			logger(c).Error("enqueue commission accrual",
				zap.String("transaction", settled.Id), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commission queue unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
