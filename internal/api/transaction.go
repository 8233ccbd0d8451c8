package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"styleswap/internal/styleswap"
)

type orderParams struct {
	RazorpayPaymentId string          `json:"razorpay_payment_id" binding:"required,max=64"`
	Amount            decimal.Decimal `json:"amount"`
	Items             []string        `json:"items" binding:"required,min=1,dive,max=100"`
	ReferralCode      string          `json:"referral_code" binding:"max=32"`
}

// GetOrders lists the caller's orders, newest first
// @Param page query int false "page"
// @Param size query int false "page size, max 100"
// @Router /users/orders [get]
func GetOrders(c *gin.Context) {
	app := c.MustGet("app").(*App)
	page, size, ok := pageParams(c)
	if !ok {
		return
	}
	identity := c.MustGet("identity").(*styleswap.Identity)
	transactions, err := app.Orders.ListTransactionsByEmail(c, identity.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginate(transactions, page, size, "/users/orders"))
}

// CreateOrder records a checkout authorized by Razorpay. The referral code
// captured from the storefront link travels with the order until settlement.
func CreateOrder(c *gin.Context) {
	app := c.MustGet("app").(*App)
	identity := c.MustGet("identity").(*styleswap.Identity)
	var params orderParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !params.Amount.IsPositive() {
		respondError(c, styleswap.NewValidationError("amount", "Amount must be positive"))
		return
	}
	transaction := &styleswap.Transaction{
		Id:                uuid.NewString(),
		RazorpayPaymentId: params.RazorpayPaymentId,
		UserEmail:         identity.Email,
		Amount:            params.Amount.Round(2),
		Items:             params.Items,
		Status:            styleswap.PaymentAuthorized,
		RenderStatus:      styleswap.RenderPending,
		ReferralCode:      strings.TrimSpace(params.ReferralCode),
	}
	if err := app.Orders.CreateTransaction(c, transaction); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, transaction)
}
