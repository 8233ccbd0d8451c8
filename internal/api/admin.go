package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"styleswap/internal/affiliate"
	"styleswap/internal/api/jwt"
	"styleswap/internal/styleswap"
)

type adminLoginParams struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type affiliateSettingsParams struct {
	Enabled                     *bool `json:"enabled" binding:"required"`
	DefaultCommissionPercentage *int  `json:"default_commission_percentage" binding:"required"`
}

func AdminLogin(c *gin.Context) {
	app := c.MustGet("app").(*App)
	var params adminLoginParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userOk := subtle.ConstantTimeCompare([]byte(params.Username), []byte(app.Admin.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(app.Admin.PasswordHash), []byte(params.Password))
	if app.Admin.Username == "" || !userOk || passErr != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := jwt.GenerateAdminJWT(params.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int(jwt.AdminTokenExpiration.Seconds())})
}

func GetAffiliateSettings(c *gin.Context) {
	app := c.MustGet("app").(*App)
	current, err := app.Settings.Get(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, current)
}

// UpdateAffiliateSettings changes the program switch and the commission
// percentage applied to commissions created from now on
// @Router /admin/settings/affiliate [put]
func UpdateAffiliateSettings(c *gin.Context) {
	app := c.MustGet("app").(*App)
	var params affiliateSettingsParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := app.Settings.Update(c, styleswap.AffiliateSettings{
		Enabled:                     *params.Enabled,
		DefaultCommissionPercentage: *params.DefaultCommissionPercentage,
	}, c.GetString("admin"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func ListAffiliates(c *gin.Context) {
	app := c.MustGet("app").(*App)
	page, size, ok := pageParams(c)
	if !ok {
		return
	}
	listings, err := app.Affiliates.List(c, app.Origin)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginate(listings, page, size, "/admin/affiliates"))
}

func AddAffiliate(c *gin.Context) {
	app := c.MustGet("app").(*App)
	var params affiliate.Partner
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := app.Affiliates.AddPartner(c, params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, affiliate.Listing{
		Affiliate: *created,
		Link:      affiliate.BuildLink(app.Origin, created.ReferralCode),
	})
}

func MarkCommissionPaid(c *gin.Context) {
	app := c.MustGet("app").(*App)
	paid, err := app.Affiliates.MarkPaid(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paid)
}

// GetFailedAccruals lists commission accruals that need manual follow-up.
func GetFailedAccruals(c *gin.Context) {
	app := c.MustGet("app").(*App)
	if app.FailedAccruals == nil {
		c.JSON(http.StatusOK, gin.H{"results": []interface{}{}})
		return
	}
	failed, err := app.FailedAccruals()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": failed})
}
