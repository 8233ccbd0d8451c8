package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"styleswap/internal/styleswap"
)

func GetUser(c *gin.Context) {
	app := c.MustGet("app").(*App)
	identity := c.MustGet("identity").(*styleswap.Identity)
	user, err := app.Accounts.CurrentUser(c, *identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// RefreshUser re-reads the credit balance, e.g. after a purchase.
func RefreshUser(c *gin.Context) {
	app := c.MustGet("app").(*App)
	identity := c.MustGet("identity").(*styleswap.Identity)
	user, err := app.Accounts.RefreshCredits(c, identity.Id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
