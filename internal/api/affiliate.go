package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"styleswap/internal/affiliate"
	"styleswap/internal/styleswap"
)

// GetAffiliate returns the caller's partner dashboard, or enrolled=false
// when they have not joined yet.
// @Router /users/affiliate [get]
func GetAffiliate(c *gin.Context) {
	app := c.MustGet("app").(*App)
	identity := c.MustGet("identity").(*styleswap.Identity)
	dashboard, err := app.Affiliates.Dashboard(c, identity.Id, app.Origin)
	if errors.Is(err, styleswap.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"enrolled": false})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrolled": true, "dashboard": dashboard})
}

// JoinAffiliate enrolls the caller in the Partner Program
// @Router /users/affiliate [post]
func JoinAffiliate(c *gin.Context) {
	app := c.MustGet("app").(*App)
	identity := c.MustGet("identity").(*styleswap.Identity)
	enrollment := affiliate.Enrollment{
		UserId:   identity.Id,
		FullName: identity.FullName,
		Email:    identity.Email,
	}
	if user, err := app.Accounts.CurrentUser(c, *identity); err == nil && user.FullName != "" {
		enrollment.FullName = user.FullName
	}
	created, err := app.Affiliates.Enroll(c, enrollment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"affiliate": created,
		"link":      affiliate.BuildLink(app.Origin, created.ReferralCode),
	})
}

func GetCommissions(c *gin.Context) {
	app := c.MustGet("app").(*App)
	page, size, ok := pageParams(c)
	if !ok {
		return
	}
	identity := c.MustGet("identity").(*styleswap.Identity)
	commissions, err := app.Affiliates.Commissions(c, identity.Id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginate(commissions, page, size, "/users/affiliate/commissions"))
}

func RequestPayout(c *gin.Context) {
	app := c.MustGet("app").(*App)
	identity := c.MustGet("identity").(*styleswap.Identity)
	requested, err := app.Affiliates.RequestPayout(c, identity.Id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "requested", "balance": requested.Balance})
}
